// Package client builds a load balanced task service client on top of go-kit
// service discovery.
package client

import (
	"io"
	"strings"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todocal/tasksvc/pkg/tasktransport"
)

const (
	// ServiceName is the name instances register under in Consul.
	ServiceName = "todocal"
	// APIPath is where registered instances serve the task routes.
	APIPath = "/api"
)

// NewConsul discovers passing todocal instances through Consul.
func NewConsul(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) taskendpoint.Set {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, ServiceName, tags, passingOnly)
	)
	return New(instancer, APIPath, logger, retryMax, retryTimeout)
}

// New returns an endpoint set that round robins every call over the
// instances reported by instancer, retrying up to retryMax times within
// retryTimeout. The task routes of each instance live under path.
func New(instancer sd.Instancer, path string, logger log.Logger, retryMax int, retryTimeout time.Duration) taskendpoint.Set {
	balance := func(makeEndpoint func(taskservice.Service) endpoint.Endpoint) endpoint.Endpoint {
		factory := factoryFor(makeEndpoint, path, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: balance(taskendpoint.MakeCreateTaskEndpoint),
		TasksEndpoint:      balance(taskendpoint.MakeTasksEndpoint),
		TaskEndpoint:       balance(taskendpoint.MakeTaskEndpoint),
		UpdateTaskEndpoint: balance(taskendpoint.MakeUpdateTaskEndpoint),
		DeleteTaskEndpoint: balance(taskendpoint.MakeDeleteTaskEndpoint),
		MonthEndpoint:      balance(taskendpoint.MakeMonthEndpoint),
	}
}

func factoryFor(makeEndpoint func(taskservice.Service) endpoint.Endpoint, path string, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := tasktransport.NewHTTPClient(strings.TrimSuffix(instance, "/")+path, logger)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
