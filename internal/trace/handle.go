package trace

// Handle is an external reference to one SSA index (C3). It is the
// unit of ownership the array frontend holds: obtaining a Handle marks
// its index live (ref_external > 0); dropping the last copy makes the
// index eligible for collection on the scheduler's next pass. Handle
// intentionally carries no methods of its own — all mutation goes
// through the owning Context so ref-counting stays centralized and
// mutex-free, matching the single-threaded model in spec §5.
type Handle int32

// invalidHandle is returned, together with a non-nil error, by
// operations that fail before producing a usable index (Alloc when the
// device allocation fails).
const invalidHandle Handle = -1
