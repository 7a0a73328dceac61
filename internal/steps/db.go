package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/shehryarbajwa/browserbase-e2e/internal/dbutil"
	"github.com/shehryarbajwa/browserbase-e2e/internal/world"
)

func registerDB(sc *godog.ScenarioContext) {
	sc.Step(`^I execute the SQL:$`, executeSQL)
	sc.Step(`^the query "([^"]*)" should return (\d+) rows?$`, queryReturnsRows)
	sc.Step(`^the query file "([^"]*)" should return (\d+) rows?$`, queryFileReturnsRows)
	sc.Step(`^a record should exist for "([^"]*)"$`, recordExists)
}

func database(ctx context.Context) (*dbutil.DB, error) {
	w, err := world.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return w.DB()
}

func executeSQL(ctx context.Context, body *godog.DocString) error {
	db, err := database(ctx)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, body.Content)
	return err
}

func queryReturnsRows(ctx context.Context, query string, want int) error {
	db, err := database(ctx)
	if err != nil {
		return err
	}
	rows, err := db.GetRecords(ctx, query)
	if err != nil {
		return err
	}
	return expectRows(query, len(rows), want)
}

func queryFileReturnsRows(ctx context.Context, name string, want int) error {
	db, err := database(ctx)
	if err != nil {
		return err
	}
	rows, err := db.RunQueryFromFile(ctx, name)
	if err != nil {
		return err
	}
	return expectRows(name, len(rows), want)
}

func expectRows(query string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: expected %d rows, got %d", query, want, got)
	}
	return nil
}

func recordExists(ctx context.Context, query string) error {
	db, err := database(ctx)
	if err != nil {
		return err
	}
	ok, err := db.RecordExists(ctx, query)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no record returned by %s", query)
	}
	return nil
}
