package providers

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// SharedLibraryEnv overrides the location of the ONNX Runtime shared library.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the shared library for the current platform.
//
// Arguments:
//   - configured: A path from configuration; takes precedence when set.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error if the platform has no known library location.
func GetSharedLibPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if p := os.Getenv(SharedLibraryEnv); p != "" {
		return p, nil
	}

	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll", nil
	case "darwin":
		return "./third_party/libonnxruntime.1.23.0.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
}
