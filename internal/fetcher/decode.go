package fetcher

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText returns a UTF-8 reader over r. With an explicit charset the
// named encoding is used. Otherwise a byte-order mark selects UTF-8 or
// UTF-16, valid UTF-8 passes through, and anything else is read as EUC-KR,
// the default export encoding of Korean spreadsheet tools.
func DecodeText(r io.Reader, charset string) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "decode: read input")
	}

	enc, err := detectEncoding(data, charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return bytes.NewReader(bytes.TrimPrefix(data, bomUTF8)), nil
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, eris.Wrap(err, "decode: transform")
	}
	return bytes.NewReader(bytes.TrimPrefix(out, bomUTF8)), nil
}

// detectEncoding returns nil when data is already UTF-8.
func detectEncoding(data []byte, charset string) (encoding.Encoding, error) {
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "decode: unsupported charset %q", charset)
		}
		return enc, nil
	}

	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return nil, nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), nil
	case utf8.Valid(data):
		return nil, nil
	default:
		return korean.EUCKR, nil
	}
}
