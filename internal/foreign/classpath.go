package foreign

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/sasquach/internal/classfile"
)

// ReadClass converts a compiled class file into a Class, keeping only public,
// non-synthetic members.
func ReadClass(data []byte) (*Class, error) {
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	c := &Class{
		Name:       cf.ThisClass,
		Super:      cf.SuperClass,
		Interfaces: cf.Interfaces,
		Interface:  cf.Access&classfile.AccInterface != 0,
	}
	for _, f := range cf.Fields {
		if !visible(f.Access) {
			continue
		}
		c.Members = append(c.Members, &Member{
			Name:       f.Name,
			Kind:       KindField,
			Static:     f.Access&classfile.AccStatic != 0,
			Descriptor: f.Descriptor,
			Result:     f.Descriptor,
		})
	}
	for _, m := range cf.Methods {
		if !visible(m.Access) || m.Name == "<clinit>" {
			continue
		}
		kind := KindMethod
		if m.Name == "<init>" {
			kind = KindConstructor
		}
		member, err := newMethod(m.Name, m.Descriptor, kind, m.Access&classfile.AccStatic != 0)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", c.Name, err)
		}
		c.Members = append(c.Members, member)
	}
	return c, nil
}

func visible(access uint16) bool {
	return access&classfile.AccPublic != 0 && access&(classfile.AccSynthetic|classfile.AccBridge) == 0
}

// LoadClassDir indexes every .class file below dir.
func LoadClassDir(dir string) (*Index, error) {
	ix := NewIndex()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		c, err := ReadClass(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		ix.Add(c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("foreign classpath %s: %w", dir, err)
	}
	return ix, nil
}

// LoadJar indexes every class in a jar archive. module-info and
// multi-release entries are skipped.
func LoadJar(path string) (*Index, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("foreign classpath %s: %w", path, err)
	}
	defer zr.Close()

	ix := NewIndex()
	for _, f := range zr.File {
		name := f.Name
		if !strings.HasSuffix(name, ".class") || strings.HasPrefix(name, "META-INF/") ||
			strings.HasSuffix(name, "module-info.class") {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("foreign classpath %s: %s: %w", path, name, err)
		}
		c, err := ReadClass(data)
		if err != nil {
			return nil, fmt.Errorf("foreign classpath %s: %s: %w", path, name, err)
		}
		ix.Add(c)
	}
	return ix, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
