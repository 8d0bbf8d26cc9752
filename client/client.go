// Package client 实现客户端网络层。每次连接尝试由一个独立协程驱动；
// 游戏循环通过 Connecting / ServerConnection 只做非阻塞轮询，从不等待网络 I/O。
package client

import (
	"github.com/pkg/errors"

	"blocknet/proto"
)

// Connecting 一次进行中的连接尝试
type Connecting struct {
	conn      *ServerConnection
	onConnect <-chan outcome
	err       error
	taken     bool
}

// Poll 非阻塞地查询连接状态：
//   - 仍在进行：返回 nil, nil, nil
//   - 连接成功：返回连接句柄与登录结果（只返回一次，之后的调用返回 nil, nil, nil）
//   - 失败：返回描述原因的错误（之后每次调用都返回同一错误）
func (c *Connecting) Poll() (*ServerConnection, *proto.LoginAccept, error) {
	if c.err != nil || c.taken {
		return nil, nil, c.err
	}
	select {
	case res := <-c.onConnect:
		if res.err != nil {
			c.err = errors.Wrap(res.err, "connection failed")
			return nil, nil, c.err
		}
		conn := c.conn
		c.conn = nil
		c.taken = true
		return conn, &res.login, nil
	default:
		return nil, nil, nil
	}
}

// Cancel 放弃连接尝试，只发出请求，不等待。结果已被 Poll 取走后无效。可重复调用。
func (c *Connecting) Cancel() {
	if c.conn != nil {
		c.conn.Stop()
	}
}

// ServerConnection 已建立的连接。方法只应在游戏循环协程中调用。
type ServerConnection struct {
	channels
}

// IsOpen 网络协程结束前为 true
func (c *ServerConnection) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Poll 非阻塞：最多返回一条入站负载
func (c *ServerConnection) Poll() ([]byte, bool) {
	select {
	case p := <-c.incoming:
		return p, true
	default:
		return nil, false
	}
}

// Send 把负载放入发送队列（非阻塞）。队列已满、已请求停止或连接已关闭时返回 false。
func (c *ServerConnection) Send(payload []byte) bool {
	if c.stop == nil || !c.IsOpen() {
		return false
	}
	select {
	case c.outgoing <- payload:
		return true
	default:
		return false
	}
}

// SendChat 编码并发送一条聊天消息
func (c *ServerConnection) SendChat(text string) error {
	payload, err := proto.EncodeChat(text)
	if err != nil {
		return err
	}
	if !c.Send(payload) {
		return errors.New("chat queue full or connection closed")
	}
	return nil
}

// Stop 请求网络协程优雅退出并立即返回；协程通知服务器后关闭传输层，完成时 Done 关闭。
// 可重复调用，连接已结束时也安全。
func (c *ServerConnection) Stop() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Done 网络协程结束时关闭
func (c *ServerConnection) Done() <-chan struct{} { return c.done }

// Err 连接结束后返回导致结束的错误；主动 Stop 或仍在运行时返回 nil
func (c *ServerConnection) Err() error {
	if c.IsOpen() {
		return nil
	}
	return *c.err
}

// TryConnect 立即返回，连接与登录在独立协程中进行
func TryConnect(address, username string, opts Options) *Connecting {
	ch, nc := newChannels(opts)
	onConnect := make(chan outcome, 1)

	go run(address, username, opts, nc, onConnect)

	return &Connecting{
		conn:      &ServerConnection{channels: ch},
		onConnect: onConnect,
	}
}
