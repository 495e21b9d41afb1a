package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// httpRequest adapts an inbound *http.Request into a Request.
type httpRequest struct {
	docId           string
	ifModifiedSince time.Time
}

func newRequest(r *http.Request, docId string) *httpRequest {
	req := &httpRequest{docId: docId}
	if v := r.Header.Get("If-Modified-Since"); v != "" {
		if t, err := time.Parse(http.TimeFormat, v); err == nil {
			req.ifModifiedSince = t
		}
	}
	return req
}

func (r *httpRequest) DocId() string { return r.docId }

func (r *httpRequest) HasChangedSinceLastAccess(lastModified time.Time) bool {
	if r.ifModifiedSince.IsZero() || lastModified.IsZero() {
		return true
	}
	return lastModified.After(r.ifModifiedSince)
}

func (r *httpRequest) LastAccessTime() time.Time { return r.ifModifiedSince }

// httpResponse buffers headers until the first Write/RespondNotModified/
// RespondNotFound call, per the "frozen once the body stream is obtained"
// invariant: SetMetadata/SetAcl after that point are no-ops.
type httpResponse struct {
	w    http.ResponseWriter
	sent bool

	contentType string
	metadata    map[string]string
	acl         *AclFragment
}

func newResponse(w http.ResponseWriter) *httpResponse {
	return &httpResponse{w: w}
}

func (r *httpResponse) SetContentType(contentType string) {
	if r.sent {
		return
	}
	r.contentType = contentType
}

func (r *httpResponse) SetMetadata(m map[string]string) {
	if r.sent {
		return
	}
	r.metadata = m
}

func (r *httpResponse) SetAcl(acl AclFragment) {
	if r.sent {
		return
	}
	r.acl = &acl
}

func (r *httpResponse) RespondNotModified() {
	if r.sent {
		return
	}
	r.sent = true
	r.w.WriteHeader(http.StatusNotModified)
}

func (r *httpResponse) RespondNotFound() {
	if r.sent {
		return
	}
	r.sent = true
	r.w.WriteHeader(http.StatusNotFound)
}

// Writer commits headers built so far and returns the body sink.
// X-Gsa-External-Metadata carries one percent-encoded key=value pair per
// header value, per the document handler's wire contract.
func (r *httpResponse) Writer() io.Writer {
	if !r.sent {
		r.sent = true
		if r.contentType != "" {
			r.w.Header().Set("Content-Type", r.contentType)
		}
		for k, v := range r.metadata {
			r.w.Header().Add("X-Gsa-External-Metadata", fmt.Sprintf("%s=%s", url.QueryEscape(k), url.QueryEscape(v)))
		}
		if r.acl != nil {
			writeAclHeaders(r.w.Header(), r.acl)
		}
		r.w.WriteHeader(http.StatusOK)
	}
	return r.w
}

func writeAclHeaders(h http.Header, acl *AclFragment) {
	h.Set("X-Gsa-Serve-Security", "secure")
	for _, u := range acl.PermitUsers {
		h.Add("X-Gsa-Serve-Security-Permit-User", u)
	}
	for _, u := range acl.DenyUsers {
		h.Add("X-Gsa-Serve-Security-Deny-User", u)
	}
	for _, g := range acl.PermitGroups {
		h.Add("X-Gsa-Serve-Security-Permit-Group", g)
	}
	for _, g := range acl.DenyGroups {
		h.Add("X-Gsa-Serve-Security-Deny-Group", g)
	}
}
