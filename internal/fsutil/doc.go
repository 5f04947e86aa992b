// Provides the file installation helpers shared by the build
// pipeline.
//
// Single files are installed by hardlink where possible and copied
// when the source and destination live on different filesystems.
// Whole trees are always copied, so a seeded tree can be rewritten
// freely without the changes showing up in its source.
package fsutil
