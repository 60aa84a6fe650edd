package rad

import "os"

// readFile loads an entire file's contents as the Evaluator needs them
// for `include`/`read`/ExecuteFile — small helper kept separate from
// the auth check so callers decide when the gate applies.
func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeFile overwrites path with content. Nothing in the package calls
// it at present.
func writeFile(path string, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
