// Package secure keeps key material in memguard enclaves.
//
// Key material is encrypted at rest in memory (XSalsa20Poly1305), protected
// from swapping via mlock where the platform allows it, and wiped after use:
//
//	buf, err := secure.NewSecureBuffer(key)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	err = buf.WithBytes(func(key []byte) error {
//	    return encrypt(key)
//	})
//
// The slice handed to WithBytes is only valid for the duration of the callback.
// Call memguard.Purge() (see Purge) before process exit to wipe every enclave key.
package secure
