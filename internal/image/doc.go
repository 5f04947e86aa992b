// Package image packages built crates into runnable container images
// without a container runtime or daemon.
//
// An image is two layers: a minimal runtime rootfs with the pieces
// service binaries commonly expect at run time, and the crate's
// installed binaries. The result is written as a tar archive of an
// OCI image layout, loadable with podman, skopeo or docker.
//
// Example usage:
//
//	p := &image.Packager{}
//	if err := p.Package(crate, artifact, "dist/node/image.tar"); err != nil {
//	    return err
//	}
package image
