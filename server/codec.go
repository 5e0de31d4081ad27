package server

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/fixkme/tickwheel/errs"
)

const (
	msgLenSize   = 4
	maxFrameSize = 4 << 20
)

var byteOrder = binary.LittleEndian

// 方法名
const (
	MethodStart   = "start"   // args: domain, id, delay
	MethodStop    = "stop"    // args: id
	MethodPoll    = "poll"    // args: external tick count
	MethodReset   = "reset"   // 无参数
	MethodSession = "session" // 无参数, result为会话id
)

// Request 字段号: 1 seq, 2 method, 3 args(repeated)
type Request struct {
	Seq    uint32
	Method string
	Args   []string
}

// Response 字段号: 1 seq, 2 ecode, 3 error, 4 result, 5 expired(repeated)
type Response struct {
	Seq     uint32
	Ecode   int32
	Error   string
	Result  string
	Expired []string
}

func (r *Request) AppendTo(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Seq))
	if r.Method != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, r.Method)
	}
	for _, a := range r.Args {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, a)
	}
	return b
}

func (r *Request) Unmarshal(data []byte) error {
	return consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.Seq = uint32(v)
			return n
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.Method = v
			return n
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n >= 0 {
				r.Args = append(r.Args, v)
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

func (r *Response) AppendTo(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Seq))
	if r.Ecode != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(r.Ecode)))
	}
	if r.Error != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, r.Error)
	}
	if r.Result != "" {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, r.Result)
	}
	for _, id := range r.Expired {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, id)
	}
	return b
}

func (r *Response) Unmarshal(data []byte) error {
	return consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.Seq = uint32(v)
			return n
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.Ecode = int32(v)
			return n
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.Error = v
			return n
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.Result = v
			return n
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n >= 0 {
				r.Expired = append(r.Expired, v)
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

// consumeFields 逐个读取字段, 未知字段跳过
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errs.Protocol.Printf("tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m < 0 {
			return errs.Protocol.Printf("field %d: %v", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

type message interface {
	AppendTo(b []byte) []byte
}

// EncodeFrame 4字节小端长度 + 消息体
func EncodeFrame(m message) []byte {
	buf := make([]byte, msgLenSize, 64)
	buf = m.AppendTo(buf)
	byteOrder.PutUint32(buf[:msgLenSize], uint32(len(buf)-msgLenSize))
	return buf
}

// DecodeFrame 从data头部取一个完整帧, 不完整时返回 n=0
func DecodeFrame(data []byte) (body []byte, n int, err error) {
	if len(data) < msgLenSize {
		return nil, 0, nil
	}
	size := int(byteOrder.Uint32(data[:msgLenSize]))
	if size > maxFrameSize {
		return nil, 0, errs.Protocol.Printf("frame size %d exceeds %d", size, maxFrameSize)
	}
	if len(data) < msgLenSize+size {
		return nil, 0, nil
	}
	return data[msgLenSize : msgLenSize+size], msgLenSize + size, nil
}
