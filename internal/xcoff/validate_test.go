package xcoff_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pase-tools/xcoffscan/internal/xcoff"
	"github.com/pase-tools/xcoffscan/testutil"
)

func TestValidate_MissingFile(t *testing.T) {
	result := xcoff.Validate(filepath.Join(t.TempDir(), "nope"))

	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "File not found")
	assert.Equal(t, xcoff.TypeUnknown, result.FileType)
}

func TestValidate_TooSmall(t *testing.T) {
	dir := t.TempDir()

	for size := 0; size < xcoff.HeaderSize; size++ {
		path := filepath.Join(dir, "small")
		data := make([]byte, size)
		if size >= 2 {
			data[0], data[1] = 0x01, 0xDF
		}
		require.NoError(t, os.WriteFile(path, data, 0644))

		result := xcoff.Validate(path)
		assert.False(t, result.Valid, "size %d", size)
		assert.Equal(t, int64(size), result.Details["file_size"], "size %d", size)
		assert.Contains(t, result.Error, "File too small")
	}
}

func TestValidate_Archive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libfoo.a")
	data := append([]byte("!<arch>\n"), make([]byte, 60)...)
	require.NoError(t, os.WriteFile(path, data, 0644))

	result := xcoff.Validate(path)
	assert.True(t, result.Valid)
	assert.Equal(t, xcoff.TypeArchive, result.FileType)
	assert.Equal(t, int64(68), result.Details["file_size"])
}

func TestValidate_XCOFF(t *testing.T) {
	tests := []struct {
		name      string
		header    xcoff.Header
		size      int
		valid     bool
		fileType  xcoff.FileType
		errSubstr string
	}{
		{
			name:     "valid 32-bit",
			header:   xcoff.Header{Magic: xcoff.Magic32, Sections: 4, SymbolOffset: 100, SymbolCount: 3},
			size:     256,
			valid:    true,
			fileType: xcoff.TypeXCOFF32,
		},
		{
			name:     "valid 64-bit",
			header:   xcoff.Header{Magic: xcoff.Magic64, Sections: 2},
			size:     64,
			valid:    true,
			fileType: xcoff.TypeXCOFF64,
		},
		{
			name:      "too many sections",
			header:    xcoff.Header{Magic: xcoff.Magic32, Sections: 1001},
			size:      64,
			fileType:  xcoff.TypeXCOFF32,
			errSubstr: "Suspicious section count: 1001",
		},
		{
			name:      "symbol table beyond end",
			header:    xcoff.Header{Magic: xcoff.Magic32, Sections: 1, SymbolOffset: 4096},
			size:      64,
			fileType:  xcoff.TypeXCOFF32,
			errSubstr: "Symbol table offset beyond file size",
		},
		{
			name:      "optional header too large",
			header:    xcoff.Header{Magic: xcoff.Magic64, OptHeaderLen: 2048},
			size:      64,
			fileType:  xcoff.TypeXCOFF64,
			errSubstr: "Suspicious optional header size: 2048",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteObject(t, t.TempDir(), "obj.o", tt.header, tt.size)

			result := xcoff.Validate(path)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.fileType, result.FileType)
			if tt.errSubstr != "" {
				assert.Contains(t, result.Error, tt.errSubstr)
			} else {
				assert.Empty(t, result.Error)
			}
			assert.Equal(t, int64(tt.size), result.Details["file_size"])
			assert.Equal(t, tt.header.Sections, result.Details["sections"])
		})
	}
}

func TestValidate_SymbolOffsetDetailsKept(t *testing.T) {
	h := xcoff.Header{
		Magic:        xcoff.Magic32,
		Sections:     5,
		Timestamp:    12345,
		SymbolOffset: 9999,
		SymbolCount:  7,
		OptHeaderLen: 72,
		Flags:        0x1002,
	}
	path := testutil.WriteObject(t, t.TempDir(), "bad.o", h, 100)

	result := xcoff.Validate(path)
	require.False(t, result.Valid)
	assert.Equal(t, "Symbol table offset beyond file size", result.Error)
	assert.Equal(t, "0x01DF", result.Details["magic"])
	assert.Equal(t, uint16(5), result.Details["sections"])
	assert.Equal(t, uint32(12345), result.Details["timestamp"])
	assert.Equal(t, uint32(9999), result.Details["symbol_table_offset"])
	assert.Equal(t, uint32(7), result.Details["symbol_count"])
	assert.Equal(t, uint16(72), result.Details["optional_header_size"])
	assert.Equal(t, "0x1002", result.Details["flags"])
}

func TestValidate_MultipleProblemsJoined(t *testing.T) {
	h := xcoff.Header{Magic: xcoff.Magic32, Sections: 5000, OptHeaderLen: 4000}
	path := testutil.WriteObject(t, t.TempDir(), "junk.o", h, 64)

	result := xcoff.Validate(path)
	assert.False(t, result.Valid)
	assert.Equal(t, "Suspicious section count: 5000; Suspicious optional header size: 4000", result.Error)
}

func TestValidate_UnknownMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elf")
	data := append([]byte{0x7f, 'E', 'L', 'F'}, make([]byte, 40)...)
	require.NoError(t, os.WriteFile(path, data, 0644))

	result := xcoff.Validate(path)
	assert.False(t, result.Valid)
	assert.Equal(t, "Invalid magic: 0x7F45", result.Error)
	assert.Equal(t, uint16(0x7F45), result.Details["magic"])
}

func TestValidate_Directory(t *testing.T) {
	result := xcoff.Validate(t.TempDir())
	assert.False(t, result.Valid)
}

func TestParseHeader(t *testing.T) {
	h := xcoff.Header{Magic: xcoff.Magic64, Sections: 9, Timestamp: 1, SymbolOffset: 2, SymbolCount: 3, OptHeaderLen: 4, Flags: 5}

	got, err := xcoff.ParseHeader(testutil.HeaderBytes(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)

	_, err = xcoff.ParseHeader([]byte{0x01})
	assert.Error(t, err)
}
