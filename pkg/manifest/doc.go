// pkg/manifest/doc.go
package manifest

/*
Package manifest loads and validates the declarative environment
description that drives devshell.

A manifest looks like:

    name: creusot
    toolchain: toolchain.yaml
    deps:
      - openssl
      - zlib
    tools:
      - rustfmt
      - clippy
    env:
      RUST_BACKTRACE: "1"

Build dependencies (deps) contribute library outputs to the derived library
search path; tools only contribute executables. The optional toolchain file
pins a compiler package and channel:

    package: rustc
    channel: "1.76.0"

The toolchain package is merged into the build dependency set, so its
runtime libraries end up on the library search path alongside the declared
build dependencies.

Manifests are static data: loading performs no resolution and no network
access. Packages() and Canonical() expose deterministic views used by the
resolver and the lockfile fingerprint.
*/
