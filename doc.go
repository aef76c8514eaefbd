// Package pdfservice converts untrusted HTML or Markdown documents into PDF.
//
// # Quick Start
//
// Build a pipeline from an engine and a codec, then process a request:
//
//	pool := pdfservice.NewEnginePool(pdfservice.ResolvePoolSize(0), nil)
//	defer pool.Close()
//
//	p := pdfservice.NewPipeline(pdfservice.NewPooledEngine(pool), pdfservice.NewPDFCodec())
//	result, err := p.Process(ctx, &pdfservice.Request{
//	    Markup: []byte(`<h1>Invoice</h1><img src="logo.png">`),
//	    Attachments: []pdfservice.Attachment{
//	        {Name: "logo.png", Content: logo, MediaType: "image/png"},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("invoice.pdf", result.PDF, 0644)
//
// # Pipeline
//
// A request goes through fixed stages. The first failing stage ends the run
// and is reported as a *StageError:
//
//  1. Decode: markup, attachments and options from the inbound request
//  2. Render: headless Chrome lays out the document
//  3. Serialize: the page model is printed to PDF
//  4. Rotate: optional, 90, 180 or 270 degrees
//  5. Encrypt: optional, AES-256 with the supplied password
//
// # Resource Loading
//
// Every resource the engine requests goes through a per-request fetch guard.
// Inline data URIs are decoded, host-less references resolve against the
// request's attachments, and references with a host are refused unless the
// request allows network access. Any refusal fails the render, so a document
// is never produced with silently missing content.
//
// # Errors
//
// StageError carries the failing stage, its class, a detail message and a
// recommended HTTP status. Use errors.Is with the fetch and pdfops sentinels
// to inspect the cause.
package pdfservice
