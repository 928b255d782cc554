// SPDX-License-Identifier: EPL-2.0

//go:build audiodebug

package engine

const debugChecks = true
