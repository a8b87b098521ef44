//go:build !linux

package syncer

const syncfsSupported = false

func syncFilesystems(string) error {
	return ErrUnsupportedMethod
}
