package server

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fixkme/tickwheel/errs"
)

// Client 同步客户端, 一个请求一个响应, goroutine safe
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	seq  uint32
}

// Dial addr 可以带 tcp:// 前缀
func Dial(ctx context.Context, addr string) (*Client, error) {
	network, address := "tcp", addr
	if i := strings.Index(addr, "://"); i >= 0 {
		network, address = addr[:i], addr[i+3:]
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Call 发送请求并等待响应, 响应中的错误转换为CodeError返回
func (c *Client) Call(ctx context.Context, method string, args ...string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	req := &Request{Seq: c.seq, Method: method, Args: args}
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(dl)
	} else {
		c.conn.SetDeadline(time.Time{})
	}
	if _, err := c.conn.Write(EncodeFrame(req)); err != nil {
		return nil, err
	}
	lenBuf := make([]byte, msgLenSize)
	if _, err := io.ReadFull(c.conn, lenBuf); err != nil {
		return nil, err
	}
	size := int(byteOrder.Uint32(lenBuf))
	if size > maxFrameSize {
		return nil, errs.Protocol.Printf("frame size %d exceeds %d", size, maxFrameSize)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, err
	}
	rsp := new(Response)
	if err := rsp.Unmarshal(body); err != nil {
		return nil, err
	}
	if rsp.Seq != req.Seq {
		return nil, errs.Protocol.Printf("response seq %d, want %d", rsp.Seq, req.Seq)
	}
	if rsp.Ecode != errs.ErrCode_OK {
		return rsp, errs.CreateCodeError(rsp.Ecode, rsp.Error)
	}
	return rsp, nil
}

func (c *Client) Start(ctx context.Context, domain, id string, delay int64) error {
	_, err := c.Call(ctx, MethodStart, domain, id, strconv.FormatInt(delay, 10))
	return err
}

func (c *Client) Stop(ctx context.Context, id string) error {
	_, err := c.Call(ctx, MethodStop, id)
	return err
}

func (c *Client) Poll(ctx context.Context, ticks int64) ([]string, error) {
	rsp, err := c.Call(ctx, MethodPoll, strconv.FormatInt(ticks, 10))
	if err != nil {
		return nil, err
	}
	return rsp.Expired, nil
}

// Reset 返回新的会话id
func (c *Client) Reset(ctx context.Context) (string, error) {
	rsp, err := c.Call(ctx, MethodReset)
	if err != nil {
		return "", err
	}
	return rsp.Result, nil
}

func (c *Client) Session(ctx context.Context) (string, error) {
	rsp, err := c.Call(ctx, MethodSession)
	if err != nil {
		return "", err
	}
	return rsp.Result, nil
}
