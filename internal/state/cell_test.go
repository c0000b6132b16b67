package state

import "testing"

func TestCellGetSet(t *testing.T) {
	c := NewCell(1)
	if c.Get() != 1 {
		t.Fatalf("Expected 1, got %d", c.Get())
	}
	c.Set(2)
	if c.Get() != 2 {
		t.Errorf("Expected 2, got %d", c.Get())
	}
}

func TestCellSubscribeReceivesCurrentThenLatest(t *testing.T) {
	c := NewCell("a")
	ch, cancel := c.Subscribe()
	defer cancel()

	if v := <-ch; v != "a" {
		t.Errorf("Expected current value a, got %s", v)
	}

	// an idle subscriber only keeps the most recent value
	c.Set("b")
	c.Set("c")
	if v := <-ch; v != "c" {
		t.Errorf("Expected latest value c, got %s", v)
	}
}

func TestCellUnsubscribeClosesChannel(t *testing.T) {
	c := NewCell(0)
	ch, cancel := c.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed")
	}
	c.Set(5)
	if c.Get() != 5 {
		t.Errorf("Expected 5, got %d", c.Get())
	}
}
