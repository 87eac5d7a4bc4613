/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package version

import "fmt"

var (
	Version   string
	GitCommit string
)

const banner = `
__      ___ __ ___ _ __
\ \ /\ / / '__/ _ \ '_ \
 \ V  V /| | |  __/ | | |
  \_/\_/ |_|  \___|_| |_|
`

func Release() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

func Commit() string {
	return GitCommit
}

func Banner() string {
	return banner
}

func Print() {
	fmt.Println(Banner())
	fmt.Printf("Release: %s\n", Release())
	fmt.Printf("Commit:  %s\n", Commit())
}
