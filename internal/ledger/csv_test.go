package ledger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"subforge/internal/ledger"
	"subforge/internal/testsupport"
)

func TestExportImportRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	testsupport.SeedStatus(t, source, ledger.Status{ItemID: "vid-a", HostingUploaded: true})
	testsupport.SeedStatus(t, source, ledger.Status{
		ItemID: "vid-b", DownstreamSent: true, TranslationA: true,
		TranslationB: true, HostingUploaded: true,
	})

	var buf bytes.Buffer
	if err := source.ExportCSV(ctx, &buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "item_id,downstream_sent,") {
		t.Fatalf("unexpected header: %q", buf.String())
	}

	destCfg := testsupport.NewConfig(t)
	dest := testsupport.MustOpenLedger(t, destCfg)
	count, err := dest.ImportCSV(ctx, &buf)
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imported rows, got %d", count)
	}

	restored, err := dest.Get(ctx, "vid-b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if restored == nil || !restored.Succeeded() {
		t.Fatalf("expected vid-b fully succeeded after import: %#v", restored)
	}
	partial, err := dest.Get(ctx, "vid-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if partial == nil || partial.Succeeded() || !partial.HostingUploaded {
		t.Fatalf("expected vid-a partially succeeded after import: %#v", partial)
	}
}

func TestImportRejectsWrongHeader(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	input := "video,sent,ru,ar,up\nvid-a,true,true,true,true\n"
	if _, err := store.ImportCSV(context.Background(), strings.NewReader(input)); err == nil {
		t.Fatal("expected header mismatch error")
	}
}

func TestImportRejectsBadFlagValue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	input := "item_id,downstream_sent,translation_a,translation_b,hosting_uploaded\n" +
		"vid-a,yes,true,true,true\n"
	if _, err := store.ImportCSV(context.Background(), strings.NewReader(input)); err == nil {
		t.Fatal("expected flag parse error")
	}
}

func TestImportEmptyInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	count, err := store.ImportCSV(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows, got %d", count)
	}
}
