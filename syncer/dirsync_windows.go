package syncer

// Directory entries cannot be flushed on windows.
func syncDir(string) error {
	return nil
}
