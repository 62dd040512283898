package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"signal-tracker/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, prices PriceReader, signals SignalReaderWriter, schedule ScheduleReader) {
	server.AddResource(&mcp.Resource{
		URI:         "market://categories",
		Name:        "categories",
		Description: "List of signal categories served by this tracker",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, domain.Categories)
	})

	server.AddResource(&mcp.Resource{
		URI:         "market://tracked-pairs",
		Name:        "tracked-pairs",
		Description: "Trading pairs tracked per category",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		pairs := make(map[domain.Category][]string, len(domain.Categories))
		for _, category := range domain.Categories {
			if profile, ok := domain.ProfileFor(category); ok {
				pairs[category] = append([]string(nil), profile.Pairs...)
			}
		}
		return jsonResource(req.Params.URI, pairs)
	})

	server.AddResource(&mcp.Resource{
		URI:         "prices://latest",
		Name:        "prices-latest",
		Description: "Latest quotes for every tracked pair",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if prices == nil {
			return nil, fmt.Errorf("price service unavailable")
		}
		book, err := prices.LatestPrices(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, pricesListLatestOutput{Prices: book.Prices, Cached: book.Cached, Timestamp: book.Timestamp})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "signals://{category}/active",
		Name:        "signals-active",
		Description: "Active signal set for a category",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if signals == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "signals" || strings.Trim(parsed.Path, "/") != "active" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		category, err := normalizeCategory(parsed.Host)
		if err != nil {
			return nil, err
		}

		result, err := signals.ActiveSignals(ctx, category)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, signalsListActiveOutput{Category: category, Signals: result})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "signals://{category}/completed{?limit}",
		Name:        "signals-completed",
		Description: "Completed signal records for a category; optional limit query param",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if signals == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "signals" || strings.Trim(parsed.Path, "/") != "completed" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		category, err := normalizeCategory(parsed.Host)
		if err != nil {
			return nil, err
		}

		limit := defaultCompletedLimit
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			limit = normalizeCompletedLimit(n)
		}

		records, err := signals.CompletedSignals(ctx, category)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, signalsListCompletedOutput{Completed: tailRecords(records, limit)})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "autogen://{category}/status",
		Name:        "autogen-status",
		Description: "Auto-generation schedule for a category",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if schedule == nil {
			return nil, fmt.Errorf("auto-generation scheduler unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "autogen" || strings.Trim(parsed.Path, "/") != "status" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		category, err := normalizeCategory(parsed.Host)
		if err != nil {
			return nil, err
		}

		state, until, err := schedule.Status(ctx, category)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, autogenStatusOutput{
			Category:         category,
			Enabled:          state.Enabled,
			LastRunAt:        state.LastRunAt,
			NextRunInSeconds: int64(until.Seconds()),
		})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
