// Package pdfops rotates, encrypts and inspects serialized PDF documents.
// It wraps pdfcpu so the rest of the module never imports it directly.
package pdfops

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Sentinel errors for PDF operations.
var (
	ErrNotPDF           = errors.New("input is not a PDF document")
	ErrAlreadyEncrypted = errors.New("PDF is already encrypted, cannot re-encrypt an encrypted PDF")
	ErrInvalidRotation  = errors.New("rotation must be one of 90, 180, 270")
	ErrEmptyPassword    = errors.New("password must not be empty")
	ErrRotate           = errors.New("rotating PDF failed")
	ErrEncrypt          = errors.New("encrypting PDF failed")
	ErrRead             = errors.New("reading PDF failed")
)

// AES key length used for encryption.
const aesKeyLength = 256

var pdfMagic = []byte("%PDF-")

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	model.ConfigPath = "disable"
}

// ValidRotation reports whether angle is a supported clockwise rotation.
func ValidRotation(angle int) bool {
	switch angle {
	case 90, 180, 270:
		return true
	}
	return false
}

// CheckHeader verifies data starts with the PDF magic bytes.
func CheckHeader(data []byte) error {
	if !bytes.HasPrefix(data, pdfMagic) {
		return ErrNotPDF
	}
	return nil
}

// Rotate turns every page of pdf clockwise by angle degrees.
func Rotate(pdf []byte, angle int) ([]byte, error) {
	if !ValidRotation(angle) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRotation, angle)
	}
	if err := CheckHeader(pdf); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.Rotate(bytes.NewReader(pdf), &out, angle, nil, newConfig()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRotate, err)
	}
	return out.Bytes(), nil
}

// Encrypt protects pdf with AES-256, using password as both user and owner password.
// Already encrypted input is refused rather than encrypted twice.
func Encrypt(pdf []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	encrypted, err := IsEncrypted(pdf)
	if err != nil {
		return nil, err
	}
	if encrypted {
		return nil, ErrAlreadyEncrypted
	}

	conf := model.NewAESConfiguration(password, password, aesKeyLength)
	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(pdf), &out, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return out.Bytes(), nil
}

// IsEncrypted reports whether pdf carries an encryption dictionary.
func IsEncrypted(pdf []byte) (bool, error) {
	if err := CheckHeader(pdf); err != nil {
		return false, err
	}
	ctx, err := api.ReadContext(bytes.NewReader(pdf), newConfig())
	if err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			return true, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return ctx.Encrypt != nil, nil
}

// PageCount returns the number of pages, decrypting with password when it is set.
func PageCount(pdf []byte, password string) (int, error) {
	if err := CheckHeader(pdf); err != nil {
		return 0, err
	}
	conf := newConfig()
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	n, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return n, nil
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
