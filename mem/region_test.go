package mem

import (
	"bytes"
	"sync"
	"testing"
)

func TestAllocAligned(t *testing.T) {

	buffer := NewBuffer(1024)
	defer buffer.Release()

	first, allocErr := buffer.Alloc(5)
	if allocErr != nil {
		t.Fatalf("unexpected error %v", allocErr)
	}

	second, allocErr := buffer.Alloc(16)
	if allocErr != nil {
		t.Fatalf("unexpected error %v", allocErr)
	}

	if first.Address()%8 != 0 {
		t.Errorf("Expected aligned address but got %d", first.Address())
	}
	if second.Address()%8 != 0 {
		t.Errorf("Expected aligned address but got %d", second.Address())
	}
	if second.Address() < first.Address()+first.Size() {
		t.Errorf("regions overlap: %d < %d", second.Address(), first.Address()+first.Size())
	}
}

func TestAllocOutOfSpace(t *testing.T) {

	buffer := NewBuffer(64)
	defer buffer.Release()

	_, allocErr := buffer.Alloc(128)
	if allocErr == nil {
		t.Errorf("Expected out of space error but got none")
	}
}

func TestSubRegionSharesBytes(t *testing.T) {

	buffer := NewBuffer(256)
	defer buffer.Release()

	region, _ := buffer.Alloc(64)

	sub, subErr := region.SubRegion(8, 16)
	if subErr != nil {
		t.Fatalf("unexpected error %v", subErr)
	}

	sub.Bytes()[0] = 0xAB

	if region.Bytes()[8] != 0xAB {
		t.Errorf("Expected subregion write to alias parent but got %d", region.Bytes()[8])
	}

	_, badErr := region.SubRegion(60, 16)
	if badErr == nil {
		t.Errorf("Expected out of bounds subregion error but got none")
	}
}

func TestU32View(t *testing.T) {

	buffer := NewBuffer(256)
	defer buffer.Release()

	region, _ := buffer.Alloc(16)

	view := region.U32()
	if len(view) != 4 {
		t.Fatalf("Expected 4 elements but got %d", len(view))
	}

	view[2] = 0xDEADBEEF

	if region.AtomicLoadU32(8) != 0xDEADBEEF {
		t.Errorf("Expected view write to be visible through atomic load")
	}
}

func TestAtomicAddClaims(t *testing.T) {

	buffer := NewBuffer(64)
	defer buffer.Release()

	region, _ := buffer.Alloc(8)
	region.PutU32(0, 0)

	const workers = 8
	const claims = 100

	var wg sync.WaitGroup
	seen := make(chan uint32, workers*claims)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < claims; j++ {
				seen <- region.AtomicAddU32(0, 1)
			}
		}()
	}

	wg.Wait()
	close(seen)

	got := map[uint32]bool{}
	for v := range seen {
		if got[v] {
			t.Errorf("claim %d handed out twice", v)
		}
		got[v] = true
	}

	for i := uint32(0); i < workers*claims; i++ {
		if !got[i] {
			t.Errorf("claim %d never handed out", i)
		}
	}
}

func TestLookupAndRelease(t *testing.T) {

	buffer := NewBuffer(64)

	found, lookupErr := Lookup(buffer.Id())
	if lookupErr != nil {
		t.Fatalf("unexpected error %v", lookupErr)
	}
	if found != buffer {
		t.Errorf("Expected registry to resolve the same buffer")
	}

	if releaseErr := buffer.Release(); releaseErr != nil {
		t.Fatalf("unexpected error %v", releaseErr)
	}

	_, lookupErr = Lookup(buffer.Id())
	if lookupErr == nil {
		t.Errorf("Expected lookup of released buffer to fail")
	}

	if releaseErr := buffer.Release(); releaseErr != ErrBufferReleased {
		t.Errorf("Expected ErrBufferReleased but got %v", releaseErr)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {

	buffer := NewBuffer(4096)
	defer buffer.Release()

	region, _ := buffer.Alloc(1024)

	data := region.Bytes()
	for i := range data {
		data[i] = byte(i % 251)
	}

	var snap bytes.Buffer
	if snapErr := Snapshot(region, &snap); snapErr != nil {
		t.Fatalf("unexpected error %v", snapErr)
	}

	restored := NewBuffer(1024)
	defer restored.Release()

	target, _ := restored.Alloc(1024)
	if restoreErr := Restore(target, &snap); restoreErr != nil {
		t.Fatalf("unexpected error %v", restoreErr)
	}

	if !bytes.Equal(region.Bytes(), target.Bytes()) {
		t.Errorf("restored region does not match the snapshotted one")
	}
}
