package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// NewESClient creates an Elasticsearch client with sane defaults and optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}

const auditMapping = `{
  "mappings": {
    "properties": {
      "action":     {"type": "keyword"},
      "user_id":    {"type": "keyword"},
      "email":      {"type": "keyword"},
      "ip":         {"type": "ip", "ignore_malformed": true},
      "user_agent": {"type": "text"},
      "success":    {"type": "boolean"},
      "reason":     {"type": "keyword"},
      "at":         {"type": "date"}
    }
  }
}`

// EnsureAuditIndex creates the audit index if it does not exist yet.
func EnsureAuditIndex(ctx context.Context, es *elasticsearch.Client, index string) error {
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(c, es)
	if err != nil {
		return err
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{Index: index, Body: strings.NewReader(auditMapping)}.Do(c, es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.Status())
	}
	return nil
}
