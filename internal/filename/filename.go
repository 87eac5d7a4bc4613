/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package filename

import (
	"hash/crc32"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

// Values carries the request-derived context a format string may refer to.
// Empty fields expand to nothing.
type Values struct {
	ScriptName string
	Host       string
	RequestURI string
	UniqueID   string
	SessionID  string
}

const suffix = ".xt"

// Expand turns a format string into an output path. A '%' followed by a
// directive character is replaced, any other character is copied verbatim.
// A trailing '%' or an unknown directive is preserved as-is. The function
// never fails; unavailable context degrades to an empty contribution.
//
// Directives:
//
//	%c  crc32 checksum of the current working directory
//	%p  process id
//	%r  random number, lowercase hexadecimal
//	%s  sanitized script name
//	%t  unix timestamp, seconds
//	%u  unix timestamp, seconds_microseconds
//	%H  sanitized host name
//	%R  sanitized request URI
//	%U  sanitized unique request id
//	%S  sanitized session id
//	%%  literal '%'
func Expand(dir string, format string, addSuffix bool, vals Values) string {
	var buf strings.Builder
	buf.Grow(len(dir) + len(format)*2)

	if dir != "" {
		buf.WriteString(dir)
		buf.WriteByte('/')
	}

	for pos := 0; pos < len(format); pos++ {
		c := format[pos]
		if c != '%' || pos+1 == len(format) {
			buf.WriteByte(c)
			continue
		}

		pos++
		switch c = format[pos]; c {
		case 'c':
			cwd, _ := os.Getwd()
			buf.WriteString(strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(cwd))), 10))
		case 'p':
			buf.WriteString(strconv.Itoa(os.Getpid()))
		case 'r':
			buf.WriteString(strconv.FormatUint(rand.Uint64(), 16))
		case 's':
			buf.WriteString(Sanitize(vals.ScriptName))
		case 't':
			buf.WriteString(strconv.FormatInt(time.Now().Unix(), 10))
		case 'u':
			now := time.Now()
			buf.WriteString(strconv.FormatInt(now.Unix(), 10))
			buf.WriteByte('_')
			buf.WriteString(strconv.Itoa(now.Nanosecond() / 1e3))
		case 'H':
			buf.WriteString(Sanitize(vals.Host))
		case 'R':
			buf.WriteString(Sanitize(vals.RequestURI))
		case 'U':
			buf.WriteString(Sanitize(vals.UniqueID))
		case 'S':
			buf.WriteString(Sanitize(vals.SessionID))
		case '%':
			buf.WriteByte('%')
		default:
			buf.WriteByte('%')
			buf.WriteByte(c)
		}
	}

	if addSuffix {
		buf.WriteString(suffix)
	}
	return buf.String()
}

// Sanitize replaces characters that are unsafe in a file name with '_'.
func Sanitize(s string) string {
	if !strings.ContainsAny(s, `/\.?&+ `) {
		return s
	}

	b := []byte(s)
	for i, c := range b {
		switch c {
		case '/', '\\', '.', '?', '&', '+', ' ':
			b[i] = '_'
		}
	}
	return string(b)
}
