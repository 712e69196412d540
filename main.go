// Command markupcheck checks single-file HTML games for balanced markup,
// balanced script brackets, JavaScript syntax errors and expected features.
package main

import "markupcheck/cmd"

func main() {
	cmd.Execute()
}
