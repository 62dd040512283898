package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, prices PriceReader, signals SignalReaderWriter, schedule ScheduleReader) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "prices_list_latest",
		Description: "Get the latest quote for every tracked pair",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ pricesListLatestInput) (*mcp.CallToolResult, pricesListLatestOutput, error) {
		if prices == nil {
			return nil, pricesListLatestOutput{}, fmt.Errorf("price service unavailable")
		}
		book, err := prices.LatestPrices(ctx)
		if err != nil {
			return nil, pricesListLatestOutput{}, err
		}
		return nil, pricesListLatestOutput{Prices: book.Prices, Cached: book.Cached, Timestamp: book.Timestamp}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "prices_get_by_symbol",
		Description: "Get the latest quote for one symbol",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in pricesGetBySymbolInput) (*mcp.CallToolResult, pricesGetBySymbolOutput, error) {
		if prices == nil {
			return nil, pricesGetBySymbolOutput{}, fmt.Errorf("price service unavailable")
		}
		symbol, err := normalizeSymbol(in.Symbol)
		if err != nil {
			return nil, pricesGetBySymbolOutput{}, err
		}
		price, err := prices.PairPrice(ctx, symbol)
		if err != nil {
			return nil, pricesGetBySymbolOutput{}, err
		}
		return nil, pricesGetBySymbolOutput{Symbol: symbol, Price: price}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_list_active",
		Description: "Get the active signal set for a category",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsListActiveInput) (*mcp.CallToolResult, signalsListActiveOutput, error) {
		if signals == nil {
			return nil, signalsListActiveOutput{}, fmt.Errorf("signal service unavailable")
		}
		category, err := normalizeCategory(in.Category)
		if err != nil {
			return nil, signalsListActiveOutput{}, err
		}
		result, err := signals.ActiveSignals(ctx, category)
		if err != nil {
			return nil, signalsListActiveOutput{}, err
		}
		return nil, signalsListActiveOutput{Category: category, Signals: result}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_list_completed",
		Description: "Get completed signal records, optionally filtered by category",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsListCompletedInput) (*mcp.CallToolResult, signalsListCompletedOutput, error) {
		if signals == nil {
			return nil, signalsListCompletedOutput{}, fmt.Errorf("signal service unavailable")
		}
		category, err := normalizeOptionalCategory(in.Category)
		if err != nil {
			return nil, signalsListCompletedOutput{}, err
		}
		records, err := signals.CompletedSignals(ctx, category)
		if err != nil {
			return nil, signalsListCompletedOutput{}, err
		}
		records = tailRecords(records, normalizeCompletedLimit(in.Limit))
		return nil, signalsListCompletedOutput{Completed: records}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_generate",
		Description: "Run one generation cycle for a category and merge the candidates over the active set",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsGenerateInput) (*mcp.CallToolResult, signalsGenerateOutput, error) {
		if signals == nil {
			return nil, signalsGenerateOutput{}, fmt.Errorf("signal service unavailable")
		}
		category, err := normalizeCategory(in.Category)
		if err != nil {
			return nil, signalsGenerateOutput{}, err
		}
		result, generated, err := signals.GenerateCategory(ctx, category)
		if err != nil {
			return nil, signalsGenerateOutput{}, err
		}
		return nil, signalsGenerateOutput{Category: category, GeneratedCount: generated, Signals: result}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "autogen_status",
		Description: "Get the auto-generation schedule for a category",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in autogenStatusInput) (*mcp.CallToolResult, autogenStatusOutput, error) {
		if schedule == nil {
			return nil, autogenStatusOutput{}, fmt.Errorf("auto-generation scheduler unavailable")
		}
		category, err := normalizeCategory(in.Category)
		if err != nil {
			return nil, autogenStatusOutput{}, err
		}
		state, until, err := schedule.Status(ctx, category)
		if err != nil {
			return nil, autogenStatusOutput{}, err
		}
		return nil, autogenStatusOutput{
			Category:         category,
			Enabled:          state.Enabled,
			LastRunAt:        state.LastRunAt,
			NextRunInSeconds: int64(until.Seconds()),
		}, nil
	})
}
