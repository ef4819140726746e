// Package printing provides the PDF rendering pipeline backed by a single
// shared headless Chrome process.
//
// This package contains:
//   - EngineSupervisor, which launches the engine lazily, hands out the live
//     handle and drops it once the engine disconnects
//   - Session, one request's isolated page from open to guaranteed disposal
//   - FooterComposer, which builds the footer printed on every page
//   - TemplateRegistry, which maps each document type to its markup function
//   - ChromedpLauncher, the chromedp implementation of Launcher
//
// Example usage:
//
//	supervisor := NewEngineSupervisor(NewChromedpLauncher(&ChromedpConfig{NoSandbox: true}), logger)
//	defer supervisor.Close(context.Background())
//
//	handle, err := supervisor.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	session, err := OpenSession(ctx, supervisor, handle, SessionConfig{})
//	if err != nil {
//	    return err
//	}
//	defer session.Dispose()
//
//	if err := session.RenderMarkup(ctx, markup, time.Minute); err != nil {
//	    return err
//	}
//	pdf, err := session.ProducePDF(ctx, footer, printing.DefaultPageOptions())
package printing
