// Package cloudkit is a CloudKit Web Services client for the public
// database, authenticated with a server-to-server key. It implements
// store.Store.
package cloudkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/cocoaheadsnl/cloudsync/internal/transport"
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
	"github.com/cocoaheadsnl/cloudsync/pkg/store"
)

// DefaultBaseURL is the CloudKit Web Services root.
const DefaultBaseURL = "https://api.apple-cloudkit.com"

// Environments.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

const (
	apiVersion = "1"
	database   = "public"
	provider   = "cloudkit"

	// Per-request limits of the records endpoints.
	queryLimit  = 200
	modifyLimit = 200
)

// Config describes the container to sync with.
type Config struct {
	Container   string
	Environment string
	KeyID       string
	PrivateKey  []byte // PEM
	BaseURL     string
}

// Validate checks that the config is complete.
func (c Config) Validate() error {
	if c.Container == "" {
		return errors.NewValidationError("cloudkit_container", c.Container, "must be set")
	}
	if c.Environment != EnvironmentDevelopment && c.Environment != EnvironmentProduction {
		return errors.NewValidationError("cloudkit_environment", c.Environment, "must be development or production")
	}
	if c.KeyID == "" {
		return errors.NewValidationError("cloudkit_key_id", c.KeyID, "must be set")
	}
	if len(c.PrivateKey) == 0 {
		return errors.NewValidationError("cloudkit_private_key", nil, "must be set")
	}
	return nil
}

// Client talks to one CloudKit container.
type Client struct {
	transport *transport.Client
	signer    *Signer
	cfg       Config
	now       func() time.Time
}

var _ store.Store = (*Client)(nil)

// NewClient creates a client from cfg.
func NewClient(cfg Config, topts ...transport.Option) (*Client, error) {
	if cfg.Environment == "" {
		cfg.Environment = EnvironmentDevelopment
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	signer, err := NewSigner(cfg.KeyID, cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &Client{
		transport: transport.New(provider, topts...),
		signer:    signer,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// subpath returns the signed part of an endpoint path.
func (c *Client) subpath(endpoint string) string {
	return fmt.Sprintf("/database/%s/%s/%s/%s/%s", apiVersion, c.cfg.Container, c.cfg.Environment, database, endpoint)
}

type callerResponse struct {
	UserRecordName string `json:"userRecordName"`
}

// Authenticate implements store.Store. It verifies the key by fetching the
// caller's user record.
func (c *Client) Authenticate(ctx context.Context) (store.Session, error) {
	var resp callerResponse
	if err := c.call(ctx, http.MethodGet, "users/caller", nil, &resp); err != nil {
		var authErr *errors.AuthenticationError
		if errors.As(err, &authErr) {
			return store.Session{}, err
		}
		return store.Session{}, &errors.AuthenticationError{
			Service: provider,
			Method:  "server_key",
			Message: "could not verify server-to-server key",
			Err:     err,
		}
	}
	if resp.UserRecordName == "" {
		return store.Session{}, &errors.AuthenticationError{Service: provider, Method: "server_key", Message: "no user record in caller response"}
	}

	logging.FromContext(ctx).Debug().
		Str("container", c.cfg.Container).
		Str("environment", c.cfg.Environment).
		Msg("CloudKit session established")
	return store.Session{
		User:        resp.UserRecordName,
		Container:   c.cfg.Container,
		Environment: c.cfg.Environment,
		Established: utc.Now(),
	}, nil
}

type queryRequest struct {
	Query struct {
		RecordType string `json:"recordType"`
	} `json:"query"`
	ResultsLimit       int    `json:"resultsLimit"`
	ContinuationMarker string `json:"continuationMarker,omitempty"`
}

type recordsResponse struct {
	Records            []Record `json:"records"`
	ContinuationMarker string   `json:"continuationMarker,omitempty"`
}

// Query implements store.Store, following continuation markers until the
// result set is exhausted.
func (c *Client) Query(ctx context.Context, sess store.Session, t records.Type) ([]records.Record, error) {
	if err := c.checkSession(sess); err != nil {
		return nil, err
	}

	var out []records.Record
	req := queryRequest{ResultsLimit: queryLimit}
	req.Query.RecordType = t.String()
	for {
		var resp recordsResponse
		if err := c.call(ctx, http.MethodPost, "records/query", req, &resp); err != nil {
			return nil, err
		}
		for _, w := range resp.Records {
			if w.ServerErrorCode != "" {
				return nil, fmt.Errorf("query %s: %w", t, recordError(w))
			}
			r, err := DecodeRecord(w)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		if resp.ContinuationMarker == "" {
			break
		}
		req.ContinuationMarker = resp.ContinuationMarker
	}

	logging.FromContext(ctx).Debug().
		Str("record_type", t.String()).
		Int("records", len(out)).
		Msg("Queried CloudKit records")
	return out, nil
}

type operation struct {
	OperationType string `json:"operationType"`
	Record        Record `json:"record"`
}

type modifyRequest struct {
	Operations []operation `json:"operations"`
	Atomic     bool        `json:"atomic"`
}

// Save implements store.Store. Records without an identity are created,
// the rest updated under their change tag.
func (c *Client) Save(ctx context.Context, sess store.Session, rs []records.Record) ([]records.Record, error) {
	typ := batchType(rs)
	if err := c.checkSession(sess); err != nil {
		return nil, &errors.WriteError{Operation: "save", Type: typ, Err: err}
	}

	ops := make([]operation, 0, len(rs))
	for _, r := range rs {
		w, err := EncodeRecord(r)
		if err != nil {
			return nil, &errors.WriteError{Operation: "save", Type: typ, Err: err}
		}
		opType := "create"
		if r.HasIdentity() {
			opType = "update"
		}
		ops = append(ops, operation{OperationType: opType, Record: w})
	}

	return c.modify(ctx, "save", typ, ops)
}

// Delete implements store.Store. Records without a change tag are deleted
// unconditionally.
func (c *Client) Delete(ctx context.Context, sess store.Session, rs []records.Record) error {
	typ := batchType(rs)
	if err := c.checkSession(sess); err != nil {
		return &errors.WriteError{Operation: "delete", Type: typ, Err: err}
	}

	ops := make([]operation, 0, len(rs))
	for _, r := range rs {
		if !r.HasIdentity() {
			return &errors.WriteError{Operation: "delete", Type: typ, Err: errors.NewValidationError("recordName", "", "cannot delete a record without identity")}
		}
		opType := "delete"
		if r.ChangeTag() == "" {
			opType = "forceDelete"
		}
		ops = append(ops, operation{OperationType: opType, Record: Record{
			RecordName:      r.Name(),
			RecordType:      r.Type.String(),
			RecordChangeTag: r.ChangeTag(),
		}})
	}

	_, err := c.modify(ctx, "delete", typ, ops)
	return err
}

func (c *Client) modify(ctx context.Context, op, typ string, ops []operation) ([]records.Record, error) {
	var (
		written []records.Record
		failed  []errors.RecordError
	)
	for start := 0; start < len(ops); start += modifyLimit {
		end := min(start+modifyLimit, len(ops))

		var resp recordsResponse
		req := modifyRequest{Operations: ops[start:end]}
		if err := c.call(ctx, http.MethodPost, "records/modify", req, &resp); err != nil {
			return written, &errors.WriteError{Operation: op, Type: typ, Failed: failed, Err: err}
		}
		for _, w := range resp.Records {
			if w.ServerErrorCode != "" {
				failed = append(failed, *recordError(w))
				continue
			}
			if op == "delete" {
				continue
			}
			r, err := DecodeRecord(w)
			if err != nil {
				return written, &errors.WriteError{Operation: op, Type: typ, Failed: failed, Err: err}
			}
			written = append(written, r)
		}
	}

	if len(failed) > 0 {
		return written, &errors.WriteError{Operation: op, Type: typ, Failed: failed}
	}
	return written, nil
}

type errorResponse struct {
	UUID            string `json:"uuid"`
	ServerErrorCode string `json:"serverErrorCode"`
	Reason          string `json:"reason"`
}

// call sends a signed request to endpoint and decodes the response into out.
func (c *Client) call(ctx context.Context, method, endpoint string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
	}

	subpath := c.subpath(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+subpath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", endpoint, err)
	}
	if err := c.signer.Sign(req, body, subpath, c.now()); err != nil {
		return err
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return err
	}
	data, err := transport.ReadBody(resp, provider)
	if err != nil {
		return translateError(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapParse("json", "cloudkit "+endpoint, err)
	}
	return nil
}

// translateError replaces a raw error body with the CloudKit error code and
// reason, and marks authentication failures.
func translateError(err error) error {
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	var er errorResponse
	if json.Unmarshal([]byte(apiErr.Message), &er) != nil || er.ServerErrorCode == "" {
		return err
	}
	apiErr.Message = er.ServerErrorCode
	if er.Reason != "" {
		apiErr.Message += ": " + er.Reason
	}
	switch er.ServerErrorCode {
	case "AUTHENTICATION_FAILED", "AUTHENTICATION_REQUIRED", "ACCESS_DENIED":
		return &errors.AuthenticationError{Service: provider, Method: "server_key", Message: apiErr.Message, Err: apiErr}
	}
	return apiErr
}

func recordError(w Record) *errors.RecordError {
	return &errors.RecordError{Name: w.RecordName, Code: w.ServerErrorCode, Reason: w.Reason}
}

func (c *Client) checkSession(sess store.Session) error {
	if !sess.Valid() {
		return &errors.AuthenticationError{Service: provider, Method: "server_key", Message: "session not authenticated"}
	}
	return nil
}

func batchType(rs []records.Record) string {
	if len(rs) == 0 {
		return ""
	}
	return rs[0].Type.String()
}
