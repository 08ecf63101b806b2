package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AlertService handles a tenant's alert inbox
type AlertService struct {
	client *Client
}

// AlertListOptions contains options for listing alerts
type AlertListOptions struct {
	ListOptions
	Unread           bool
	IncludeDismissed bool
	Severity         string
}

// List retrieves one page of the tenant's alerts, newest first
func (s *AlertService) List(ctx context.Context, tenantID string, opts *AlertListOptions) (*AlertPage, error) {
	query := url.Values{}

	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("pageSize", strconv.Itoa(opts.PageSize))
		}
		if opts.Unread {
			query.Set("unread", "true")
		}
		if opts.IncludeDismissed {
			query.Set("includeDismissed", "true")
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
	}

	path := tenantPath(tenantID, "alerts")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page AlertPage
	if err := s.client.doRequest(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// MarkRead marks an alert as read
func (s *AlertService) MarkRead(ctx context.Context, tenantID, id string) error {
	path := tenantPath(tenantID, fmt.Sprintf("alerts/%s/read", url.PathEscape(id)))
	return s.client.doRequest(ctx, "POST", path, nil, nil)
}

// Dismiss hides an alert from the default inbox view
func (s *AlertService) Dismiss(ctx context.Context, tenantID, id string) error {
	path := tenantPath(tenantID, fmt.Sprintf("alerts/%s/dismiss", url.PathEscape(id)))
	return s.client.doRequest(ctx, "POST", path, nil, nil)
}

func tenantPath(tenantID, rest string) string {
	return "/api/v1/tenants/" + url.PathEscape(tenantID) + "/" + rest
}
