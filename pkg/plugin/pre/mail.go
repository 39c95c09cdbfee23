package pre

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/obscura-sec/warden/pkg/plugin"
)

func init() {
	plugin.Pres.Register(NewMail())
}

// Mail walks a .eml message and tracks each attachment as a separate
// evidence file, adapted from original_source/plast's modules/pre/eml.py
// and the teacher's extractEML (which treated the whole message as one
// opaque blob of text). Scanning each attachment as its own evidence,
// rather than the raw MIME envelope, lets rules target the attachment's
// native format directly. Outlook's proprietary .msg container is not
// handled — see DESIGN.md.
type Mail struct{}

// NewMail returns the mail pre-processing plugin.
func NewMail() *Mail { return &Mail{} }

func (m *Mail) Name() string          { return "mail" }
func (m *Mail) SupportedOS() []string { return nil }

func (m *Mail) Run(target string) ([]string, func(), error) {
	f, err := os.Open(target)
	if err != nil {
		return nil, nil, fmt.Errorf("mail: opening %s: %w", target, err)
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, nil, fmt.Errorf("mail: parsing %s: %w", target, err)
	}

	dir, err := os.MkdirTemp("", "warden-mail-*")
	if err != nil {
		return nil, nil, fmt.Errorf("mail: creating scratch directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		// Not multipart: the body itself is the only evidence.
		dest := filepath.Join(dir, "body")
		if werr := writeBody(dest, msg.Body); werr != nil {
			cleanup()
			return nil, nil, werr
		}
		return []string{dest}, cleanup, nil
	}

	files, err := walkParts(multipart.NewReader(msg.Body, params["boundary"]), dir, 0)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if len(files) == 0 {
		cleanup()
		return nil, nil, nil
	}
	return files, cleanup, nil
}

func writeBody(dest string, r io.Reader) error {
	w, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("mail: writing %s: %w", dest, err)
	}
	defer w.Close()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("mail: copying body to %s: %w", dest, err)
	}
	return nil
}

// walkParts recurses into nested multipart bodies (e.g. multipart/mixed
// wrapping a multipart/alternative), mirroring eml.py's attachment walk.
func walkParts(mr *multipart.Reader, dir string, index int) ([]string, error) {
	var out []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("mail: reading part: %w", err)
		}

		mediaType, params, mperr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if mperr == nil && strings.HasPrefix(mediaType, "multipart/") {
			nested, nerr := walkParts(multipart.NewReader(part, params["boundary"]), dir, index+1)
			if nerr != nil {
				return out, nerr
			}
			out = append(out, nested...)
			continue
		}

		name := part.FileName()
		if name == "" {
			index++
			continue
		}
		index++
		dest := filepath.Join(dir, fmt.Sprintf("%03d_%s", index, filepath.Base(name)))
		if err := writeAttachment(dest, part); err != nil {
			continue
		}
		out = append(out, dest)
	}
	return out, nil
}

func writeAttachment(dest string, part *multipart.Part) error {
	w, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer w.Close()

	r := decodeTransferEncoding(part)
	_, err = io.Copy(w, r)
	return err
}

// decodeTransferEncoding handles base64-encoded attachments, the common
// case for non-text payloads in MIME messages. quoted-printable bodies
// pass through mime/multipart's Part.Read already decoded.
func decodeTransferEncoding(part *multipart.Part) io.Reader {
	switch strings.ToLower(part.Header.Get("Content-Transfer-Encoding")) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, part)
	default:
		return part
	}
}
