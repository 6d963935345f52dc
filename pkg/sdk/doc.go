// Package paperdex provides a Go client for the paperdex scholarly document
// search API.
//
//	client := paperdex.New("http://localhost:8080",
//	    paperdex.WithAPIKey(os.Getenv("PAPERDEX_API_KEY")),
//	)
//
//	res, _ := client.Search(ctx, paperdex.SearchRequest{
//	    Fields:    []string{"id", "title", "similarity_score"},
//	    Query:     "graph neural networks for citation prediction",
//	    SQLFilter: "source = 'openalex' AND published_at >= '2020-01-01'",
//	    Limit:     20,
//	})
//
// Field names are resolved server-side against the document base table and
// the discovered enrichment tables; unknown fields are dropped and reported
// in the response warnings, never failed.
package paperdex
