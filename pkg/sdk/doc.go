// Package sdk is a Go client for the draftdex HTTP API.
//
// It covers the drafting flow end to end:
//
//	client, _ := sdk.New("http://localhost:8080", sdk.WithAPIKey(key))
//	res, _ := client.Match(ctx, "I need an NDA for a contractor in California")
//	if res.Found {
//	    qs, _ := client.Questions(ctx, res.TopMatch.TemplateID, "")
//	    inst, _ := client.Generate(ctx, res.TopMatch.TemplateID, answers, "")
//	    fmt.Println(inst.DraftMD, qs.Prefilled)
//	}
//
// MatchStream delivers the progress events of a match as they happen.
// Ingest, IngestFile and IngestBatch add documents to the catalog.
package sdk
