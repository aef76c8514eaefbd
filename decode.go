package pdfservice

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Multipart part names holding the document source.
const (
	PartHTML     = "index.html"
	PartMarkdown = "index.md"
)

// Request parameters.
const (
	ParamAllowExternal = "isAllowExternalResources"
	ParamBaseURL       = "baseUrl"
	ParamRotation      = "rotation"
	ParamPassword      = "password"
	HeaderPassword     = "X-Password"
)

const (
	mediaTypeMarkdown    = "text/markdown"
	mediaTypeOctetStream = "application/octet-stream"
)

// decode builds a Request from an inbound HTTP request.
func (p *Pipeline) decode(r *http.Request) (*Request, *StageError) {
	params, err := p.decodeParams(r)
	if err != nil {
		return nil, newStageError(StageDecode, ClassInvalidParameter, http.StatusBadRequest, err)
	}

	if r.Body == nil {
		r.Body = http.NoBody
	}
	body := http.MaxBytesReader(nil, r.Body, p.maxBodyBytes)
	defer body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		err = decodeMultipart(r, body, params)
	} else {
		err = decodeRaw(body, mediaType, params)
	}
	if err != nil {
		return nil, newStageError(StageDecode, ClassDecode, statusFor(err, http.StatusBadRequest), err)
	}
	return params, nil
}

// decodeParams reads query and header options. AllowNetwork is set when the
// request opts in, names a base URL, or the pipeline allows it by default.
func (p *Pipeline) decodeParams(r *http.Request) (*Request, error) {
	q := r.URL.Query()
	req := &Request{
		BaseURL:  q.Get(ParamBaseURL),
		Password: r.Header.Get(HeaderPassword),
	}
	if req.Password == "" {
		req.Password = q.Get(ParamPassword)
	}

	allowExternal := false
	if v := q.Get(ParamAllowExternal); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidFlag, ParamAllowExternal, v)
		}
		allowExternal = b
	}
	req.AllowNetwork = allowExternal || req.BaseURL != "" || p.allowNetwork

	rotation, err := ParseRotation(q.Get(ParamRotation))
	if err != nil {
		return nil, err
	}
	req.Rotation = rotation
	return req, nil
}

// ParseRotation parses a rotation parameter. An empty value means no rotation.
func ParseRotation(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	angle, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || !validRotation(angle) {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidRotation, v)
	}
	return angle, nil
}

func decodeRaw(body io.Reader, mediaType string, req *Request) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if len(data) == 0 {
		return ErrEmptyDocument
	}
	req.Markup = data
	if mediaType == mediaTypeMarkdown {
		req.Format = FormatMarkdown
	}
	return nil
}

// decodeMultipart reads the document part and every other part as an attachment.
func decodeMultipart(r *http.Request, body io.ReadCloser, req *Request) error {
	r.Body = body
	mr, err := r.MultipartReader()
	if err != nil {
		return fmt.Errorf("reading multipart body: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading multipart body: %w", err)
		}

		name := part.FormName()
		if name == "" {
			name = part.FileName()
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return fmt.Errorf("reading part %q: %w", name, err)
		}

		switch name {
		case "":
			continue
		case PartHTML:
			req.Markup = data
			req.Format = FormatHTML
		case PartMarkdown:
			if req.Markup == nil {
				req.Markup = data
				req.Format = FormatMarkdown
			}
		default:
			req.Attachments = append(req.Attachments, Attachment{
				Name:      name,
				Content:   data,
				MediaType: attachmentMediaType(name, part.Header.Get("Content-Type"), data),
			})
		}
	}

	if req.Markup == nil {
		return ErrMissingMarkup
	}
	return nil
}

// attachmentMediaType returns the declared type, falling back to the file
// extension and then to content sniffing.
func attachmentMediaType(name, declared string, data []byte) string {
	if declared != "" && !strings.HasPrefix(declared, mediaTypeOctetStream) {
		return declared
	}
	if byExt := mime.TypeByExtension(path.Ext(name)); byExt != "" && !strings.HasPrefix(byExt, mediaTypeOctetStream) {
		return byExt
	}
	return mimetype.Detect(data).String()
}
