// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package lexica

var Version = "0.0.0"

const DocsURL = "https://hub.platform.engineering/lexica/docs"
