package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient 基于testify/mock的大模型客户端
type MockClient struct {
	mock.Mock
}

// MockClient_Expecter 提供类型化的期望设置
type MockClient_Expecter struct {
	mock *mock.Mock
}

// EXPECT 返回期望设置器
func (_m *MockClient) EXPECT() *MockClient_Expecter {
	return &MockClient_Expecter{mock: &_m.Mock}
}

// NewMockClient 创建MockClient，测试结束时校验期望调用
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Generate 模拟单轮生成，options作为一个整体参与匹配
func (_m *MockClient) Generate(ctx context.Context, prompt string, options ...CallOption) (*Response, error) {
	ret := _m.Called(ctx, prompt, options)
	if fn, ok := ret.Get(0).(func(context.Context, string, ...CallOption) (*Response, error)); ok {
		return fn(ctx, prompt, options...)
	}
	var r0 *Response
	if v := ret.Get(0); v != nil {
		r0 = v.(*Response)
	}
	return r0, ret.Error(1)
}

// MockClient_Generate_Call Generate调用的期望
type MockClient_Generate_Call struct {
	*mock.Call
}

// Generate 设置Generate的期望
func (_e *MockClient_Expecter) Generate(ctx interface{}, prompt interface{}, options interface{}) *MockClient_Generate_Call {
	return &MockClient_Generate_Call{Call: _e.mock.On("Generate", ctx, prompt, options)}
}

// Return 设置返回值
func (_c *MockClient_Generate_Call) Return(resp *Response, err error) *MockClient_Generate_Call {
	_c.Call.Return(resp, err)
	return _c
}

// RunAndReturn 使用函数计算返回值
func (_c *MockClient_Generate_Call) RunAndReturn(fn func(context.Context, string, ...CallOption) (*Response, error)) *MockClient_Generate_Call {
	_c.Call.Return(fn, nil)
	return _c
}

// Chat 模拟多轮对话
func (_m *MockClient) Chat(ctx context.Context, messages []Message, options ...CallOption) (*Response, error) {
	ret := _m.Called(ctx, messages, options)
	if fn, ok := ret.Get(0).(func(context.Context, []Message, ...CallOption) (*Response, error)); ok {
		return fn(ctx, messages, options...)
	}
	var r0 *Response
	if v := ret.Get(0); v != nil {
		r0 = v.(*Response)
	}
	return r0, ret.Error(1)
}

// MockClient_Chat_Call Chat调用的期望
type MockClient_Chat_Call struct {
	*mock.Call
}

// Chat 设置Chat的期望
func (_e *MockClient_Expecter) Chat(ctx interface{}, messages interface{}, options interface{}) *MockClient_Chat_Call {
	return &MockClient_Chat_Call{Call: _e.mock.On("Chat", ctx, messages, options)}
}

// Return 设置返回值
func (_c *MockClient_Chat_Call) Return(resp *Response, err error) *MockClient_Chat_Call {
	_c.Call.Return(resp, err)
	return _c
}

// RunAndReturn 使用函数计算返回值
func (_c *MockClient_Chat_Call) RunAndReturn(fn func(context.Context, []Message, ...CallOption) (*Response, error)) *MockClient_Chat_Call {
	_c.Call.Return(fn, nil)
	return _c
}

// Name 模拟模型名称
func (_m *MockClient) Name() string {
	ret := _m.Called()
	return ret.String(0)
}

// MockClient_Name_Call Name调用的期望
type MockClient_Name_Call struct {
	*mock.Call
}

// Name 设置Name的期望
func (_e *MockClient_Expecter) Name() *MockClient_Name_Call {
	return &MockClient_Name_Call{Call: _e.mock.On("Name")}
}

// Return 设置返回值
func (_c *MockClient_Name_Call) Return(name string) *MockClient_Name_Call {
	_c.Call.Return(name)
	return _c
}
