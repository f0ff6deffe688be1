package journal

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSink appends rows to a Google Sheet.
type SheetsSink struct {
	svc     *sheets.Service
	sheetID string
	rng     string
}

// NewSheetsSink authenticates with a service-account JSON blob.
func NewSheetsSink(ctx context.Context, sheetID, rng, credentialsJSON string) (*SheetsSink, error) {
	if sheetID == "" || credentialsJSON == "" {
		return nil, errors.New("sheets sink requires sheet id and service account json")
	}
	return NewSheetsSinkWithOptions(ctx, sheetID, rng,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

// NewSheetsSinkWithOptions builds the sink from raw client options.
func NewSheetsSinkWithOptions(ctx context.Context, sheetID, rng string, opts ...option.ClientOption) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	if rng == "" {
		rng = "Sheet1"
	}
	return &SheetsSink{svc: svc, sheetID: sheetID, rng: rng}, nil
}

// Append adds one row below the existing data.
func (s *SheetsSink) Append(ctx context.Context, e Entry) error {
	if s.svc == nil {
		return ErrClosed
	}
	cells := Row(e)
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.sheetID, s.rng, &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}

// Close drops the client.
func (s *SheetsSink) Close() error {
	s.svc = nil
	return nil
}
