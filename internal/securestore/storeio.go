package securestore

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const snapshotContext = "olink/snapshot/v1"

// ReadSealedJSON opens the snapshot at path into v. A missing or empty file
// leaves v untouched and reports found=false.
func ReadSealedJSON(path, secret string, v any) (found bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	plain := raw
	if secret != "" {
		plain, err = Open(secret, raw, snapshotContext)
		if err != nil {
			return false, err
		}
	} else if IsSealed(raw) {
		return false, ErrSecretRequired
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return false, err
	}
	return true, nil
}

// WriteSealedJSON marshals v, seals it when secret is set, and replaces path
// through a temp file rename so readers never observe a torn snapshot.
func WriteSealedJSON(path, secret string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if secret != "" {
		payload, err = Seal(secret, payload, snapshotContext)
		if err != nil {
			return err
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
