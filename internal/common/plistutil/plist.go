// Package plistutil provides utilities for working with property list files
package plistutil

import (
	"bytes"
	"fmt"

	"github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"howett.net/plist"
)

// Format represents the plist format
type Format int

const (
	// FormatXML is the XML plist format
	FormatXML Format = iota
	// FormatBinary is the binary plist format
	FormatBinary
	// FormatOpenStep is the OpenStep plist format
	FormatOpenStep
)

// Marshal encodes v (a map or a struct with plist tags) in the given format
func Marshal(v interface{}, format Format) ([]byte, error) {
	var buf bytes.Buffer

	var encoder *plist.Encoder
	switch format {
	case FormatBinary:
		encoder = plist.NewEncoderForFormat(&buf, plist.BinaryFormat)
	case FormatOpenStep:
		encoder = plist.NewEncoderForFormat(&buf, plist.OpenStepFormat)
	default:
		encoder = plist.NewEncoderForFormat(&buf, plist.XMLFormat)
		encoder.Indent("\t")
	}

	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrFileWriteError, err.Error())
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes plist data of any supported format into v
func Unmarshal(data []byte, v interface{}) error {
	if _, err := plist.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrConfigParseError, err.Error())
	}
	return nil
}
