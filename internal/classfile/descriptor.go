package classfile

import "fmt"

// SplitMethodDescriptor splits "(IJ)Ljava/lang/String;" into its parameter
// descriptors and its return descriptor.
func SplitMethodDescriptor(desc string) ([]string, string, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("malformed method descriptor %q", desc)
	}
	params := []string{}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescriptorLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("malformed method descriptor %q: missing ')'", desc)
	}
	ret := desc[i+1:]
	if ret != "V" {
		if err := ValidateFieldDescriptor(ret); err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
		}
	}
	return params, ret, nil
}

// ValidateFieldDescriptor checks that desc is exactly one field descriptor.
func ValidateFieldDescriptor(desc string) error {
	n, err := fieldDescriptorLen(desc)
	if err != nil {
		return err
	}
	if n != len(desc) {
		return fmt.Errorf("trailing characters in field descriptor %q", desc)
	}
	return nil
}

// fieldDescriptorLen returns the length of the field descriptor at the start of s.
func fieldDescriptorLen(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty field descriptor")
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return 1, nil
	case 'L':
		for i := 1; i < len(s); i++ {
			if s[i] == ';' {
				if i == 1 {
					return 0, fmt.Errorf("empty class name in %q", s)
				}
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("unterminated class descriptor %q", s)
	case '[':
		n, err := fieldDescriptorLen(s[1:])
		if err != nil {
			return 0, err
		}
		return n + 1, nil
	}
	return 0, fmt.Errorf("invalid descriptor character %q", s[0])
}

// ClassOf returns the internal class name of an object descriptor
// ("Ljava/lang/String;" gives "java/lang/String"), or "" for primitives
// and arrays.
func ClassOf(desc string) string {
	if len(desc) > 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return desc[1 : len(desc)-1]
	}
	return ""
}

// ObjectDescriptor is the inverse of ClassOf.
func ObjectDescriptor(class string) string {
	return "L" + class + ";"
}
