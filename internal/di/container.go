// internal/di/container.go
package di

import (
	"fmt"
	"sort"
	"sync"
)

// 服务注册名
const (
	Metrics   = "metrics"
	Locks     = "locks"
	Files     = "files"
	PlansRepo = "plans_repo"
	Stats     = "stats"
	LLM       = "llm"
	Plan      = "plan"
	Layout    = "layout"
	Export    = "export"
	WebSocket = "websocket"
	Limiter   = "limiter"
)

// Container 按名称保存已构建好的服务实例
type Container struct {
	services map[string]interface{}
	mutex    sync.RWMutex
}

var (
	globalContainer *Container
	once            sync.Once
)

func NewContainer() *Container {
	return &Container{services: make(map[string]interface{})}
}

// GetContainer 获取进程级容器
func GetContainer() *Container {
	once.Do(func() {
		globalContainer = NewContainer()
	})
	return globalContainer
}

// Register 注册服务，同名覆盖
func (c *Container) Register(name string, service interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.services[name] = service
}

func (c *Container) Get(name string) interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.services[name]
}

func (c *Container) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, exists := c.services[name]
	return exists
}

// Names returns the registered service names in sorted order.
func (c *Container) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve 取出服务并断言为 T；缺失或类型不符时返回错误
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	service := c.Get(name)
	if service == nil {
		return zero, fmt.Errorf("service %q not registered", name)
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service %q has type %T, want %T", name, service, zero)
	}
	return typed, nil
}
