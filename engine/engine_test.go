package engine

import (
	"reflect"
	"testing"
)

func TestInvokeArgs(t *testing.T) {
	args := InvokeArgs(
		"/testplans/plan.jmx",
		"jmeter-slaves-0.jmeter-slaves.jmeter.svc.cluster.local:50000,jmeter-slaves-1.jmeter-slaves.jmeter.svc.cluster.local:50000",
		"/results/results.jtl",
		Options{Threads: 50, LoopCount: 10},
	)

	want := []string{
		"-n",
		"-t", "/testplans/plan.jmx",
		"-R", "jmeter-slaves-0.jmeter-slaves.jmeter.svc.cluster.local:50000,jmeter-slaves-1.jmeter-slaves.jmeter.svc.cluster.local:50000",
		"-l", "/results/results.jtl",
		"-Gthreads=50",
		"-Gloops=10",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("InvokeArgs = %v, want %v", args, want)
	}
}

func TestServeArgs(t *testing.T) {
	args := ServeArgs(50000, "/shards/shard-2")

	want := []string{"-s", "-Jserver_port=50000", "-Jdataset=/shards/shard-2"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("ServeArgs = %v, want %v", args, want)
	}
}
