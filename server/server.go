package server

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/gnet/v2"

	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/hostapi"
	"github.com/fixkme/tickwheel/mlog"
)

type ServerOptions struct {
	gnet.Options
	Addr          string        // "tcp://127.0.0.1:7400"
	StatsInterval time.Duration // 定期打印调度器统计, 0不打印
	OnRunError    func(err error)
}

// Server 把hostapi暴露给远端: 每个请求帧在event-loop里直接处理并写回响应
type Server struct {
	gnet.BuiltinEventEngine
	gnet.Engine // use for stop
	host        *hostapi.Host
	opt         *ServerOptions
	booted      chan struct{}
	bootOnce    sync.Once
}

func NewServer(host *hostapi.Host, opt *ServerOptions) *Server {
	if opt.StatsInterval > 0 {
		opt.Ticker = true
	}
	return &Server{
		host:   host,
		opt:    opt,
		booted: make(chan struct{}),
	}
}

func (s *Server) Name() string {
	return "server"
}

func (s *Server) OnInit() error {
	if s.opt.Addr == "" {
		return errs.Config.Print("empty listen address")
	}
	return nil
}

func (s *Server) Run() {
	if err := gnet.Run(s, s.opt.Addr, gnet.WithOptions(s.opt.Options)); err != nil {
		mlog.Errorf("server run %s with error: %v", s.opt.Addr, err)
		if s.opt.OnRunError != nil {
			s.opt.OnRunError(err)
		}
	}
	s.bootOnce.Do(func() { close(s.booted) })
}

// Booted 监听成功(或启动失败)后关闭
func (s *Server) Booted() <-chan struct{} {
	return s.booted
}

func (s *Server) Destroy() {
	select {
	case <-s.booted:
	case <-time.After(3 * time.Second):
		mlog.Warn("server not booted before destroy")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Engine.Stop(ctx); err != nil {
		mlog.Errorf("server stop error: %v", err)
	}
}

// 在gnet.Run协程里被调用
func (s *Server) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.Engine = eng
	mlog.Infof("server listening on %s, session %s", s.opt.Addr, s.host.Scheduler().Session())
	s.bootOnce.Do(func() { close(s.booted) })
	return
}

func (s *Server) OnShutdown(eng gnet.Engine) {
	mlog.Info("server shutdown")
}

func (s *Server) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	mlog.Debugf("client %s connected", c.RemoteAddr())
	return
}

func (s *Server) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	if err != nil {
		mlog.Debugf("client %s closed: %v", c.RemoteAddr(), err)
	}
	return
}

func (s *Server) OnTraffic(c gnet.Conn) (action gnet.Action) {
	for {
		lenBuf, err := c.Peek(msgLenSize)
		if err != nil {
			return gnet.None
		}
		dataLen := int(byteOrder.Uint32(lenBuf))
		if dataLen > maxFrameSize {
			mlog.Warnf("client %s frame size %d too large, closing", c.RemoteAddr(), dataLen)
			return gnet.Close
		}
		if c.InboundBuffered() < msgLenSize+dataLen {
			return gnet.None
		}
		c.Discard(msgLenSize)
		packetBuf, err := c.Next(dataLen)
		if err != nil {
			return gnet.None
		}
		req := new(Request)
		if err = req.Unmarshal(packetBuf); err != nil {
			mlog.Warnf("client %s bad request: %v", c.RemoteAddr(), err)
			return gnet.Close
		}
		rsp := s.Dispatch(req)
		if _, err = c.Write(EncodeFrame(rsp)); err != nil {
			mlog.Errorf("client %s write response error: %v", c.RemoteAddr(), err)
			return gnet.Close
		}
	}
}

func (s *Server) OnTick() (delay time.Duration, action gnet.Action) {
	st := s.host.Scheduler().Stats()
	mlog.Infof("scheduler stats: started:%d stopped:%d expired:%d rejected:%d polls:%d",
		st.Started, st.Stopped, st.Expired, st.Rejected, st.Polls)
	return s.opt.StatsInterval, gnet.None
}

// Dispatch 处理一个请求, 错误放在响应里
func (s *Server) Dispatch(req *Request) *Response {
	rsp := &Response{Seq: req.Seq}
	var err error
	switch req.Method {
	case MethodStart:
		if err = wantArgs(req, 3); err == nil {
			err = s.host.StartTimer(req.Args[0], req.Args[1], req.Args[2])
		}
	case MethodStop:
		if err = wantArgs(req, 1); err == nil {
			s.host.Stop(req.Args[0])
		}
	case MethodPoll:
		if err = wantArgs(req, 1); err == nil {
			rsp.Expired, err = s.host.ExpiredTimers(req.Args[0])
		}
	case MethodReset:
		s.host.Setup()
		rsp.Result = s.host.Scheduler().Session()
	case MethodSession:
		rsp.Result = s.host.Scheduler().Session()
	default:
		err = errs.Protocol.Printf("unknown method %q", req.Method)
	}
	if err != nil {
		rsp.Ecode = errs.CodeOf(err)
		rsp.Error = err.Error()
	}
	return rsp
}

func wantArgs(req *Request, n int) error {
	if len(req.Args) != n {
		return errs.Protocol.Printf("%s wants %d args, got %d", req.Method, n, len(req.Args))
	}
	return nil
}
