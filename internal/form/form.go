// Package form decodes multipart request bodies into named file and field parts.
package form

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ErrNotMultipart is returned when the request does not carry a multipart body.
var ErrNotMultipart = errors.New("form: body is not multipart/form-data")

// MaxPartBytes bounds a single decoded part.
const MaxPartBytes = 10 << 20

// Kind tells a file part from a field part.
type Kind int

// Possible values for Kind
const (
	KindField Kind = iota
	KindFile
)

// Part is one named entry of a multipart body. Data is set for files,
// Value for fields.
type Part struct {
	Kind        Kind
	Name        string
	Filename    string
	ContentType string
	Data        []byte
	Value       string
}

// Form is the decoded body. Names are unique per kind; a later duplicate
// replaces an earlier one.
type Form struct {
	files  map[string]Part
	fields map[string]Part
}

// New builds a Form from already decoded parts.
func New(parts ...Part) Form {
	f := Form{files: map[string]Part{}, fields: map[string]Part{}}
	for _, p := range parts {
		f.add(p)
	}
	return f
}

func (f *Form) add(p Part) {
	if p.Kind == KindFile {
		f.files[p.Name] = p
		return
	}
	f.fields[p.Name] = p
}

// File returns the file part called name.
func (f Form) File(name string) (Part, bool) {
	p, ok := f.files[name]
	return p, ok
}

// Field returns the value of the field part called name.
func (f Form) Field(name string) (string, bool) {
	p, ok := f.fields[name]
	return p.Value, ok
}

// FileNames returns the sorted names of all file parts.
func (f Form) FileNames() []string { return sortedKeys(f.files) }

// FieldNames returns the sorted names of all field parts.
func (f Form) FieldNames() []string { return sortedKeys(f.fields) }

// Empty reports whether the form has no parts at all.
func (f Form) Empty() bool { return len(f.files) == 0 && len(f.fields) == 0 }

func sortedKeys(m map[string]Part) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Parse decodes body according to the multipart boundary in contentType.
// Parts with a filename are files; the rest are fields.
func Parse(body []byte, contentType string) (Form, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return Form{}, ErrNotMultipart
	}
	boundary := params["boundary"]
	if boundary == "" {
		return Form{}, ErrNotMultipart
	}

	f := New()
	r := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		mp, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		if err != nil {
			return Form{}, fmt.Errorf("form: next part: %w", err)
		}
		name := mp.FormName()
		if name == "" {
			mp.Close()
			continue
		}
		data, err := io.ReadAll(io.LimitReader(mp, MaxPartBytes+1))
		mp.Close()
		if err != nil {
			return Form{}, fmt.Errorf("form: read %s: %w", name, err)
		}
		if len(data) > MaxPartBytes {
			return Form{}, fmt.Errorf("form: part %s exceeds %d bytes", name, MaxPartBytes)
		}
		if mp.FileName() != "" {
			f.add(Part{Kind: KindFile, Name: name, Filename: mp.FileName(), ContentType: mp.Header.Get("Content-Type"), Data: data})
			continue
		}
		f.add(Part{Kind: KindField, Name: name, Value: string(data)})
	}
}

// FromRequest decodes the body of an API Gateway v2 request.
func FromRequest(req events.APIGatewayV2HTTPRequest) (Form, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return Form{}, fmt.Errorf("form: decode base64 body: %w", err)
		}
		body = decoded
	}
	return Parse(body, header(req.Headers, "Content-Type"))
}

// header retrieves a header value in a case-insensitive manner.
func header(h map[string]string, key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
