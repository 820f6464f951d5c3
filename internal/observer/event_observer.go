package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TryOnEvent represents a try-on lifecycle event
type TryOnEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Mode           string                 `json:"mode"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Reason         string                 `json:"reason,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of try-on event
type EventType string

const (
	// GenerationStarted when a model call is about to be made
	GenerationStarted EventType = "generation_started"
	// GenerationCompleted when the model returned a usable image
	GenerationCompleted EventType = "generation_completed"
	// GenerationFallback when the original image is returned watermarked
	GenerationFallback EventType = "generation_fallback"
	// GarmentFetched when a garment image was resolved from a URL
	GarmentFetched EventType = "garment_fetched"
	// GarmentFetchFailed when a garment URL could not be resolved
	GarmentFetchFailed EventType = "garment_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event TryOnEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event TryOnEvent)
}

// LoggingObserver logs try-on events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles try-on events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event TryOnEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"mode":            event.Mode,
		"processing_time": event.ProcessingTime,
	}

	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case GenerationStarted:
		o.logger.WithFields(fields).Info("Try-on generation started")
	case GenerationCompleted:
		o.logger.WithFields(fields).Info("Try-on generation completed")
	case GenerationFallback:
		o.logger.WithFields(fields).Warn("Try-on fell back to watermarked original")
	case GarmentFetched:
		o.logger.WithFields(fields).Debug("Garment image fetched")
	case GarmentFetchFailed:
		o.logger.WithFields(fields).Error("Garment fetch failed")
	default:
		o.logger.WithFields(fields).Info("Try-on event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects in-process counters from try-on events
type MetricsObserver struct {
	mu                  sync.RWMutex
	started             int64
	generated           int64
	fallbacks           int64
	garmentFailures     int64
	fallbackReasons     map[string]int64
	totalGenerationTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{fallbackReasons: make(map[string]int64)}
}

// OnEvent handles try-on events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event TryOnEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case GenerationStarted:
		o.started++
	case GenerationCompleted:
		o.generated++
		o.totalGenerationTime += event.ProcessingTime
	case GenerationFallback:
		o.fallbacks++
		o.fallbackReasons[event.Reason]++
	case GarmentFetchFailed:
		o.garmentFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgGenerationTime := time.Duration(0)
	if o.generated > 0 {
		avgGenerationTime = o.totalGenerationTime / time.Duration(o.generated)
	}

	reasons := make(map[string]int64, len(o.fallbackReasons))
	for k, v := range o.fallbackReasons {
		reasons[k] = v
	}

	return map[string]interface{}{
		"total_requests":         o.started,
		"generated":              o.generated,
		"fallbacks":              o.fallbacks,
		"fallback_reasons":       reasons,
		"garment_fetch_failed":   o.garmentFailures,
		"avg_generation_time_ms": avgGenerationTime.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// synchronously so counters are current when the response is written.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event TryOnEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, observer := range observers {
		func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
