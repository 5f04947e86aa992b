// Provides platform-appropriate paths for build caches.
//
// The default cache root follows XDG conventions on Linux and
// platform-native conventions on macOS and Windows, with the tool name
// "wharf" as the subdirectory under the base path. The store and scratch
// layout below the cache root is fixed, whether the root is the default
// or a caller override.
package paths
