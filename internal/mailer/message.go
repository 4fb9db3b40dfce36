package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Attachment file carried by a message
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttachFile reads path into an attachment named after the file
func AttachFile(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment %s: %w", path, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		contentType = xlsxContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Attachment{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// Message outgoing mail
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
	Date        time.Time
	MessageID   string
}

// Build renders msg as a multipart/mixed RFC 5322 message
func Build(msg Message) ([]byte, error) {
	if msg.From == "" {
		return nil, fmt.Errorf("message has no sender")
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("message has no recipients")
	}
	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", `text/plain; charset="utf-8"`)
	textHeader.Set("Content-Transfer-Encoding", "base64")
	part, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create text part: %w", err)
	}
	if err := writeBase64(part, []byte(msg.Body)); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", mime.FormatMediaType(a.ContentType, map[string]string{"name": a.Name}))
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
		h.Set("Content-Transfer-Encoding", "base64")
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part %s: %w", a.Name, err)
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	var out bytes.Buffer
	writeHeader(&out, "From", msg.From)
	writeHeader(&out, "To", strings.Join(msg.To, ", "))
	writeHeader(&out, "Date", date.Format(time.RFC1123Z))
	writeHeader(&out, "Subject", mime.BEncoding.Encode("utf-8", msg.Subject))
	if msg.MessageID != "" {
		writeHeader(&out, "Message-ID", "<"+msg.MessageID+">")
	}
	writeHeader(&out, "MIME-Version", "1.0")
	writeHeader(&out, "Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()}))
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// writeBase64 writes data base64 encoded in 76 character lines
func writeBase64(w io.Writer, data []byte) error {
	const lineLen = 76
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := lineLen
		if len(encoded) < n {
			n = len(encoded)
		}
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return fmt.Errorf("failed to write message part: %w", err)
		}
		encoded = encoded[n:]
	}
	return nil
}
