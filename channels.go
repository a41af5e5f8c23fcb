package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

const (
	channelFeedURLTemplate = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"
	channelIDPrefix        = "UC"
	channelIDLength        = 24
)

// textEncoding is one candidate decoding for the channels file
type textEncoding struct {
	name     string
	encoding encoding.Encoding // nil means UTF-8
}

// channelFileEncodings are tried in order. Latin-1 maps every byte and
// therefore always succeeds.
var channelFileEncodings = []textEncoding{
	{name: "utf-8"},
	{name: "euc-kr", encoding: korean.EUCKR},
	{name: "utf-16", encoding: unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)},
	{name: "latin-1", encoding: charmap.ISO8859_1},
}

// LoadChannelFeeds reads a channels file and returns the feeds for every
// valid channel ID in it.
func LoadChannelFeeds(path string) ([]ChannelFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading channels file %s: %w", path, err)
	}

	text, encodingName, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decoding channels file %s: %w", path, err)
	}
	debugLog("Channels file %s decoded as %s", path, encodingName)

	return ParseChannelFeeds(text), nil
}

// decodeText returns data decoded with the first encoding that accepts it
func decodeText(data []byte) (string, string, error) {
	names := make([]string, 0, len(channelFileEncodings))
	for _, enc := range channelFileEncodings {
		names = append(names, enc.name)
		if text, ok := tryDecode(data, enc); ok {
			return text, enc.name, nil
		}
	}
	return "", "", fmt.Errorf("no encoding matched (tried %s)", strings.Join(names, ", "))
}

func tryDecode(data []byte, enc textEncoding) (string, bool) {
	if enc.encoding == nil {
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}

	decoded, err := enc.encoding.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	// Decoders substitute U+FFFD for invalid input instead of failing
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}
	return string(decoded), true
}

// ParseChannelFeeds parses one channel per line, either "id" or "Label: id".
// Blank lines and lines starting with '#' are skipped.
func ParseChannelFeeds(text string) []ChannelFeed {
	var feeds []ChannelFeed

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		label := ""
		channelID := line
		if i := strings.LastIndex(line, ":"); i >= 0 {
			label = strings.TrimSpace(line[:i])
			channelID = strings.TrimSpace(line[i+1:])
		}

		if !isValidChannelID(channelID) {
			log.Printf("⚠ Invalid channel ID %q, skipping", channelID)
			continue
		}

		feeds = append(feeds, ChannelFeed{
			ChannelID: channelID,
			Label:     label,
			URL:       fmt.Sprintf(channelFeedURLTemplate, channelID),
		})
		debugLog("Loaded channel %s (%s)", channelID, label)
	}

	return feeds
}

func isValidChannelID(id string) bool {
	return strings.HasPrefix(id, channelIDPrefix) && len(id) == channelIDLength
}
