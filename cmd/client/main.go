// client 无界面客户端：连接服务器，按行从标准输入读取聊天内容，打印收到的聊天。
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blocknet/client"
	"blocknet/logging"
	"blocknet/proto"
)

func main() {
	var (
		addr    string
		name    string
		logFile string
	)
	flag.StringVar(&addr, "addr", "localhost:29477", "server address")
	flag.StringVar(&name, "name", "", "username")
	flag.StringVar(&logFile, "log", "client.log", "log file path")
	flag.Parse()
	if name == "" {
		fmt.Fprintln(os.Stderr, "-name is required")
		os.Exit(2)
	}

	if err := logging.InitLogger(logFile, false); err != nil {
		panic(err)
	}

	// 标准输入在独立协程中读取，帧循环只做非阻塞轮询
	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	code := run(addr, name, lines, quit)
	logging.SyncLogger()
	os.Exit(code)
}

func run(addr, name string, lines <-chan string, quit <-chan os.Signal) int {
	connecting := client.TryConnect(addr, name, client.DefaultOptions())
	defer connecting.Cancel()

	frame := time.NewTicker(proto.TickDuration)
	defer frame.Stop()

	var conn *client.ServerConnection
	for {
		select {
		case <-quit:
			if conn != nil {
				conn.Stop()
				<-conn.Done()
			}
			return 0
		case <-frame.C:
		}

		if conn == nil {
			c, accept, err := connecting.Poll()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return 1
			}
			if c == nil {
				continue
			}
			conn = c
			fmt.Printf("Joined as %s at (%.1f, %.1f, %.1f), world seed %d\n",
				accept.ID, accept.Position.X, accept.Position.Y, accept.Position.Z, accept.WorldSeed)
		}

		for {
			payload, ok := conn.Poll()
			if !ok {
				break
			}
			msg, err := proto.DecodeMessage(payload)
			if err != nil {
				logging.Log.Warnf("bad payload: %v", err)
				continue
			}
			if chat, ok := msg.(proto.Chat); ok {
				fmt.Println(chat.Text)
			}
		}

		if !conn.IsOpen() {
			fmt.Fprintf(os.Stderr, "Disconnected: %v\n", conn.Err())
			return 1
		}

	input:
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					conn.Stop()
					<-conn.Done()
					return 0
				}
				if line == "" {
					continue
				}
				if err := conn.SendChat(line); err != nil {
					fmt.Fprintf(os.Stderr, "%v\n", err)
				}
			default:
				break input
			}
		}
	}
}
