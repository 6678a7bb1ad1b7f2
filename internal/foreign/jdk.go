package foreign

import (
	_ "embed"
)

//go:embed jdk.yaml
var jdkIndex []byte

// LoadJDK parses the embedded stub of commonly used java.lang and java.util
// classes. Each call returns a fresh index.
func LoadJDK() (*Index, error) {
	return ParseYAML(jdkIndex, "jdk.yaml")
}
