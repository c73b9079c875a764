// Package xcoff classifies object files by inspecting their header bytes.
package xcoff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileType identifies the container format of an object file.
type FileType string

const (
	TypeXCOFF32 FileType = "xcoff32"
	TypeXCOFF64 FileType = "xcoff64"
	TypeArchive FileType = "archive"
	TypeUnknown FileType = "unknown"
)

const (
	Magic32 = 0x01DF
	Magic64 = 0x01F7

	// HeaderSize is the number of bytes read from the start of a file.
	HeaderSize = 20

	maxSections      = 1000
	maxOptHeaderSize = 1024
)

var archiveMagic = []byte("!<arch>\n")

// ValidationResult describes what Validate found in a file header.
// Details holds the decoded header fields when they could be read.
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	FileType FileType       `json:"file_type"`
	Error    string         `json:"error,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Header is the fixed part of an XCOFF file header, big-endian.
type Header struct {
	Magic        uint16
	Sections     uint16
	Timestamp    uint32
	SymbolOffset uint32
	SymbolCount  uint32
	OptHeaderLen uint16
	Flags        uint16
}

// Validate reads at most HeaderSize bytes of path and classifies the file.
// Problems with the input are reported through the result, never as an error.
func Validate(path string) ValidationResult {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return invalid(TypeUnknown, fmt.Sprintf("File not found: %s", path), nil)
		}
		return invalid(TypeUnknown, fmt.Sprintf("File not readable: %s", path), nil)
	}
	if info.IsDir() {
		return invalid(TypeUnknown, fmt.Sprintf("Not a regular file: %s", path), nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return invalid(TypeUnknown, fmt.Sprintf("File not readable: %s", path), nil)
	}
	defer f.Close()

	size := info.Size()
	if size < HeaderSize {
		return invalid(TypeUnknown, fmt.Sprintf("File too small: %d bytes", size),
			map[string]any{"file_size": size})
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return invalid(TypeUnknown, fmt.Sprintf("I/O error: %v", err), nil)
	}

	return ValidateHeader(header, size)
}

// ValidateHeader classifies a header prefix of a file whose total size is fileSize.
func ValidateHeader(header []byte, fileSize int64) ValidationResult {
	if len(header) < HeaderSize {
		return invalid(TypeUnknown, fmt.Sprintf("File too small: %d bytes", len(header)),
			map[string]any{"file_size": int64(len(header))})
	}

	if bytes.HasPrefix(header, archiveMagic) {
		return ValidationResult{
			Valid:    true,
			FileType: TypeArchive,
			Details:  map[string]any{"file_size": fileSize},
		}
	}

	magic := binary.BigEndian.Uint16(header[:2])
	switch magic {
	case Magic32:
		return validateXCOFF(header, fileSize, TypeXCOFF32)
	case Magic64:
		return validateXCOFF(header, fileSize, TypeXCOFF64)
	}

	return invalid(TypeUnknown, fmt.Sprintf("Invalid magic: 0x%04X", magic),
		map[string]any{"magic": magic, "file_size": fileSize})
}

// ParseHeader decodes the fixed header fields. The same layout is used for
// both bit widths.
func ParseHeader(header []byte) (Header, error) {
	var h Header
	if len(header) < HeaderSize {
		return h, fmt.Errorf("header too short: %d bytes", len(header))
	}
	if err := binary.Read(bytes.NewReader(header[:HeaderSize]), binary.BigEndian, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func validateXCOFF(header []byte, fileSize int64, fileType FileType) ValidationResult {
	h, err := ParseHeader(header)
	if err != nil {
		return invalid(fileType, err.Error(), nil)
	}

	details := map[string]any{
		"magic":                fmt.Sprintf("0x%04X", h.Magic),
		"sections":             h.Sections,
		"timestamp":            h.Timestamp,
		"symbol_table_offset":  h.SymbolOffset,
		"symbol_count":         h.SymbolCount,
		"optional_header_size": h.OptHeaderLen,
		"flags":                fmt.Sprintf("0x%04X", h.Flags),
		"file_size":            fileSize,
	}

	// Upper bounds catch garbage headers; they are not format limits.
	var problems []string
	if h.Sections > maxSections {
		problems = append(problems, fmt.Sprintf("Suspicious section count: %d", h.Sections))
	}
	if h.SymbolOffset > 0 && int64(h.SymbolOffset) > fileSize {
		problems = append(problems, "Symbol table offset beyond file size")
	}
	if h.OptHeaderLen > maxOptHeaderSize {
		problems = append(problems, fmt.Sprintf("Suspicious optional header size: %d", h.OptHeaderLen))
	}

	if len(problems) > 0 {
		return ValidationResult{
			Valid:    false,
			FileType: fileType,
			Error:    strings.Join(problems, "; "),
			Details:  details,
		}
	}

	return ValidationResult{
		Valid:    true,
		FileType: fileType,
		Details:  details,
	}
}

func invalid(fileType FileType, msg string, details map[string]any) ValidationResult {
	return ValidationResult{
		Valid:    false,
		FileType: fileType,
		Error:    msg,
		Details:  details,
	}
}
