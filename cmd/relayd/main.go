// relayd - real-time SSE and WebSocket fan-out server.
package main

import "github.com/getrelayd/relayd/pkg/cli"

func main() {
	cli.Execute()
}
