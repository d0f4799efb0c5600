package odm

import (
	"fmt"
	"net/url"
	"strings"
)

// Source tells the service which transport to use to fetch a link.
type Source string

const (
	SourceS3   Source = "S3"
	SourceGCS  Source = "GCS"
	SourceHTTP Source = "HTTP"
	SourceFTP  Source = "FTP"
)

// Sources lists the accepted --source values.
var Sources = []Source{SourceS3, SourceGCS, SourceHTTP, SourceFTP}

// ParseSource validates an explicit --source value (case-insensitive).
func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if strings.EqualFold(string(src), s) {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q (expected one of S3, GCS, HTTP, FTP)", s)
}

// InferSource derives the transport from the URI scheme of link.
func InferSource(link string) (Source, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "s3":
		return SourceS3, nil
	case "gs":
		return SourceGCS, nil
	case "http", "https":
		return SourceHTTP, nil
	case "ftp":
		return SourceFTP, nil
	}
	return "", fmt.Errorf("cannot infer source for link %q", link)
}
