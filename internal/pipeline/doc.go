// Package pipeline drives whole workspace builds.
//
// A run compiles the shared dependency tree once, then carries every
// crate through build, test extraction and image packaging in its own
// goroutine. Crates are independent: a broken manifest, failing build
// or unpackageable image marks that crate failed and never stops its
// siblings. The run itself only fails when no crate could proceed,
// such as a broken workspace configuration or a failed dependency
// compilation.
//
// Example usage:
//
//	res, err := pipeline.Run(ctx, pipeline.Options{
//	    Root: ".",
//	})
//	if err != nil {
//	    return err
//	}
//	for _, crate := range res.Failed() {
//	    fmt.Println(crate.Crate, crate.Error)
//	}
package pipeline
