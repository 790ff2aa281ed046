package fetch

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var (
	charsetParamRe = regexp.MustCompile(`(?i)charset=["']?([a-zA-Z0-9_-]+)`)
	metaCharsetRe  = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_-]+)`)
)

// decodeBody converts legacy Chinese encodings to UTF-8 so that selector
// queries and date parsing downstream always see UTF-8 text. The charset is
// taken from the Content-Type header, falling back to a <meta> sniff over
// the head of the document.
func decodeBody(body []byte, contentType string) []byte {
	cs := charsetFromContentType(contentType)
	if cs == "" {
		cs = sniffMetaCharset(body)
	}

	enc := encodingFor(cs)
	if enc == nil {
		return body
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}

func charsetFromContentType(contentType string) string {
	m := charsetParamRe.FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	return m[1]
}

func sniffMetaCharset(body []byte) string {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := metaCharsetRe.FindSubmatch(bytes.ToLower(head))
	if m == nil {
		return ""
	}
	return string(m[1])
}

func encodingFor(charset string) encoding.Encoding {
	switch strings.ToLower(charset) {
	case "gbk", "gb2312", "gb18030":
		// GB18030 is a superset of both GBK and GB2312.
		return simplifiedchinese.GB18030
	default:
		return nil
	}
}
