// Package models defines the data types shared by the client services,
// the storage drivers and the CLI.
package models

// ConnectionProfile is a named set of credentials plus connection parameters
// for one storage account.
//
// When Encrypted is true, AccessKeyID, SecretAccessKey and a non-empty
// SessionToken hold ciphertext rather than plaintext.
type ConnectionProfile struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	SessionToken    string `json:"session_token,omitempty"`
	Bucket          string `json:"bucket,omitempty"`
	Encrypted       bool   `json:"encrypted"`
}

// Clone returns a copy that can be changed without touching p.
func (p *ConnectionProfile) Clone() *ConnectionProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
