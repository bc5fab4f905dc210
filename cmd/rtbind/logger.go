package main

import (
	"github.com/golang/glog"

	"github.com/goliatone/go-rtbind"
)

// glogLogger writes binding failures as warnings and every other step at
// verbosity 1.
func glogLogger() rtbind.Logger {
	return rtbind.LoggerFunc(func(event rtbind.LogEvent) {
		if event.Err != nil {
			glog.Warningf("[%s][%s] %s field=%s event=%s key=%q: %v\n",
				event.Kind, event.Binding, event.Message, event.Field, event.Event, event.Key, event.Err)
			return
		}
		if event.Event == "" {
			glog.Infof("[%s][%s] %s field=%s\n", event.Kind, event.Binding, event.Message, event.Field)
			return
		}
		glog.V(1).Infof("[%s][%s] %s field=%s event=%s key=%q index=%d\n",
			event.Kind, event.Binding, event.Message, event.Field, event.Event, event.Key, event.Index)
	})
}
