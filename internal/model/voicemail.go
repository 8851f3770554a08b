package model

import "time"

// Voicemail is a single visual voicemail message, either a row in the
// local store or a transient record rebuilt from the remote mailbox.
type Voicemail struct {
	// ID is the local row identifier. Empty for remote records that
	// have not been inserted yet.
	ID string `json:"id" db:"id"`

	// PhoneAccount is the ID of the phone account the message belongs to.
	PhoneAccount string `json:"phone_account" db:"phone_account"`

	// SourceData is the remote mailbox UID and the reconciliation join key.
	SourceData string `json:"source_data" db:"source_data"`

	// Number is the caller number taken from the sender address.
	Number string `json:"number" db:"number"`

	// Timestamp is the sent date of the message.
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	IsRead    bool `json:"is_read" db:"is_read"`
	IsDeleted bool `json:"is_deleted" db:"is_deleted"`

	// Dirty marks a local read/delete change that has not been pushed
	// to the server yet.
	Dirty bool `json:"dirty" db:"dirty"`

	// HasContent reports whether the audio payload has been fetched.
	HasContent bool `json:"has_content" db:"has_content"`

	// MimeType is the payload MIME type once HasContent is set.
	MimeType string `json:"mime_type,omitempty" db:"mime_type"`
}

// Payload is the decoded audio attachment of a voicemail.
type Payload struct {
	MimeType string
	Data     []byte
}
