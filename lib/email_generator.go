package lib

import (
	"fmt"
	"math/rand"
	"time"
)

const charset = "abcdefghijklmnopqrstuvwxyz " +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 " +
	",./;'\\ \" []{}<>?:|!@£$%^&*()_+-= " +
	"\r\n\r\n\r\n "

const template = "From: %s\r\n" +
	"To: %s\r\n" +
	"Subject: A little message, just for you\r\n" +
	"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
	"Message-ID: <%d@localhost/>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n%s"

var standardFlags = []string{
	"\\Seen",
	"\\Answered",
	"\\Flagged",
	"\\Draft",
}

var seededRand *rand.Rand = rand.New(
	rand.NewSource(time.Now().UnixMilli()))

func stringWithCharset(length int, charset string) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}

// GenerateEmail returns a plain text message of a random size between
// minSize and maxSize bytes of body.
func GenerateEmail(from, to string, uid uint32, minSize, maxSize int) []byte {
	length := minSize
	if maxSize > minSize {
		length += seededRand.Intn(maxSize - minSize)
	}
	msg := fmt.Sprintf(template, from, to, uid, stringWithCharset(length, charset))
	return []byte(msg)
}

// GenerateFlags picks between 0 and max-1 of the standard message flags.
func GenerateFlags(max int) []string {
	count := seededRand.Intn(max)
	if count > len(standardFlags) {
		count = len(standardFlags)
	}
	flags := make([]string, count)
	for i := 0; i < count; i++ {
		flags[i] = standardFlags[i]
	}
	return flags
}

// GenerateDateFrom returns a random date between the parameter and now.
func GenerateDateFrom(from time.Time) time.Time {
	window := int64(time.Since(from)) - 1
	if window <= 0 {
		return from
	}
	offset := time.Duration(seededRand.Int63n(window) + 1)
	return from.Add(offset)
}
