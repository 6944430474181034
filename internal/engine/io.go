package engine

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// maxInputSize is a safety limit to prevent memory exhaustion (100 MB).
const maxInputSize = 100 * 1024 * 1024

// utf8BOM is the UTF-8 Byte Order Mark (EF BB BF).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM removes the UTF-8 BOM from the beginning of data if present.
// The BOM is not part of the program text and would show up as a stray
// token in the first line otherwise.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

func readAllInput(opts *Options) ([]byte, error) {
	if opts.UseStdin {
		data, err := io.ReadAll(io.LimitReader(bufio.NewReader(os.Stdin), maxInputSize+1))
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		if len(data) > maxInputSize {
			return nil, fmt.Errorf("input too large (>%d bytes, safety limit)", maxInputSize)
		}
		return stripBOM(data), nil
	}
	fi, err := os.Stat(opts.InputFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", opts.InputFile)
		}
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("input is a directory, not a file: %s", opts.InputFile)
	}
	if fi.Size() > maxInputSize {
		return nil, fmt.Errorf("file too large (%d bytes, max %d)", fi.Size(), maxInputSize)
	}
	data, err := os.ReadFile(opts.InputFile)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return stripBOM(data), nil
}

// decodeInput turns raw file bytes into text. UTF-8 is tried first, then
// Windows-1252, then Latin-1 as the total fallback. This mirrors how
// scripts saved by older Windows editors usually decode.
func decodeInput(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("file is empty")
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	if out, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
		s := string(out)
		if !strings.ContainsRune(s, utf8.RuneError) {
			return s, nil
		}
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("file is not decodable text: %w", err)
	}
	return string(out), nil
}

func requireInOut(opts *Options) error {
	if !opts.UseStdin && opts.InputFile == "" {
		return errors.New("missing input (use -i <file> or --stdin)")
	}
	if !opts.UseStdout && opts.OutputFile == "" && !opts.DryRun {
		return errors.New("missing output (use -o <file> or --stdout, or --dry-run for analysis only)")
	}
	return nil
}
