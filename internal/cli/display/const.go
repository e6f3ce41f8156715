// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package display

const (
	Tool       = "lexica"
	BannerBlue = `
ooo       oooooooo0  ooo    oooo  ooo      oooooo    oooo
ooo       oo          oo0  0oo    ooo     oo    oo    oo
ooo       oo            o00o      ooo    oo           oo0oo
ooo       oooooo0       0oo       ooo    oo          oo   oo
ooo       oo          o0o 0o0     ooo    oo         0ooooooo0
ooo       oo         0oo    oo0   ooo     oo    oo  oo     oo
ooooooo0  oooooooo0  ooo    ooo   ooo      oooooo   oo     oo
`
	BannerGold = `

     o0o
   0o   0o
    0o
      0o
   0    0o
    0o0o0     vversion
`
	DocRoot = "https://docs.lexica.dev/en/latest"
)
