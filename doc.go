/*
Package hwsoc provides the simulation kernel used to integrate bus mapped
cores: a cycle based circuit simulator and an API to compose parts (logic
gates, flip flops, bus adapters, cores) into larger ones.

Circuits are built from parts wired together by name. A part is described by a
PartSpec giving its input and output pins and a MountFn returning the
components that update its outputs on every simulation step:

	c, err := hwsoc.NewCircuit(0, 16, hwsoc.Parts{
		hwlib.Input(func() bool { return in })("out=x"),
		hwlib.Not("in=x, out=y"),
		hwlib.Output(func(v bool) { out = v })("in=y"),
	})

Wire states are double buffered: components read the state of the previous
step and write the next one, so every part adds one step of propagation
delay. A clock cycle spans a fixed power of two number of steps. Clocked
components latch their state at the rising edge (see Circuit.AtTick) and must
set all of their outputs on every step.

Go state attached to a component is owned by that component. Host code may
only touch it between calls to Step, Tick, Tock or Run.

Sub-packages build on this kernel: hwlib provides basic parts, stream and
wishbone the streaming and bus interfaces, core, uartbridge and scope the
cores, build and soc the integration layer.

*/
package hwsoc
