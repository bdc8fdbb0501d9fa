package config

import (
	"context"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	kvName   string
	kv       Pinger
	amqpConn *amqp.Connection
	mqtt     mqtt.Client
}

// NewHealthChecker reports on whichever dependencies are non-nil; kvName labels
// the key-value backend in the response.
func NewHealthChecker(kvName string, kv Pinger, amqpConn *amqp.Connection, mqttClient mqtt.Client) *HealthChecker {
	return &HealthChecker{kvName: kvName, kv: kv, amqpConn: amqpConn, mqtt: mqttClient}
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	if h.kv != nil {
		if err := h.kv.Ping(c.Request.Context()); err != nil {
			deps[h.kvName] = gin.H{"status": "down", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			deps[h.kvName] = gin.H{"status": "up"}
		}
	}

	if h.amqpConn != nil {
		if h.amqpConn.IsClosed() {
			deps["rabbitmq"] = gin.H{"status": "down", "error": "connection closed"}
			status = http.StatusServiceUnavailable
		} else {
			deps["rabbitmq"] = gin.H{"status": "up"}
		}
	}

	if h.mqtt != nil {
		if !h.mqtt.IsConnected() {
			deps["mqtt"] = gin.H{"status": "down", "error": "not connected"}
			status = http.StatusServiceUnavailable
		} else {
			deps["mqtt"] = gin.H{"status": "up"}
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}
