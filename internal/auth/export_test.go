// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

// WithTokenSource exposes withTokenSource to external tests.
var WithTokenSource = withTokenSource
