package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/vvm-sync/internal/model"
)

// errNoAudio is returned when a message has no audio/* part.
var errNoAudio = errors.New("no audio attachment found")

// audioPartType returns the media type of the first audio/* child of a
// multipart structure. Non-multipart messages are never voicemails.
func audioPartType(bs imap.BodyStructure) (string, bool) {
	mp, ok := bs.(*imap.BodyStructureMultiPart)
	if !ok || mp == nil {
		return "", false
	}
	for _, child := range mp.Children {
		mediaType := strings.ToLower(child.MediaType())
		if strings.HasPrefix(mediaType, "audio/") {
			return mediaType, true
		}
	}
	return "", false
}

// extractAudio parses a raw RFC 2822 message using go-message and returns
// the first audio/* part with its transfer encoding removed.
func extractAudio(raw []byte) (model.Payload, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return model.Payload{}, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return model.Payload{}, fmt.Errorf("reading message part: %w", err)
		}

		var contentType string
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ = h.ContentType()
		case *mail.AttachmentHeader:
			contentType, _, _ = h.ContentType()
		}

		contentType = strings.ToLower(contentType)
		if !strings.HasPrefix(contentType, "audio/") {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return model.Payload{}, fmt.Errorf("decoding %s part: %w", contentType, err)
		}
		return model.Payload{MimeType: contentType, Data: data}, nil
	}

	return model.Payload{}, errNoAudio
}

// numberFromAddress strips the domain of the sender address; the local
// part of a voicemail's From address is the caller number.
func numberFromAddress(from []string) string {
	if len(from) == 0 {
		return ""
	}
	sender := from[0]
	if at := strings.IndexByte(sender, '@'); at != -1 {
		sender = sender[:at]
	}
	return sender
}
