package object

// Queue is the tessellation job executor's work list. Jobs are
// processed FIFO; Split pushes children back onto the same Queue, so
// a single ExecuteJobTessel call drains an entire object's
// tessellation regardless of how deep the split recursion goes.
type Queue struct {
	jobs []*Job
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue { return &Queue{} }

// Push adds job to the back of the queue.
func (q *Queue) Push(job *Job) { q.jobs = append(q.jobs, job) }

// Pop removes and returns the job at the front of the queue, or nil
// if empty.
func (q *Queue) Pop() *Job {
	if len(q.jobs) == 0 {
		return nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job
}

// Registrar receives finished tessellations, matching spec.md §4.4's
// add_tessel step. Package scene implements this.
type Registrar interface {
	AddTessel(job *Job, t *Tessel)
}

// ExecuteJobTessel drains q: for each job, dequeue the sub-object,
// dice it directly if small enough, otherwise split it into further
// sub-object jobs pushed back onto q. Finished tessellations are
// handed to reg.
func ExecuteJobTessel(q *Queue, reg Registrar) error {
	for {
		job := q.Pop()
		if job == nil {
			return nil
		}
		if job.Elem == nil {
			return ErrNoElement
		}

		obj, err := job.Elem.Create(job)
		if err != nil {
			return err
		}
		box, err := job.Elem.Bound(job, obj)
		if err != nil {
			return err
		}

		if job.Elem.Diceable(job, obj, box) {
			t, err := job.Elem.Dice(job, obj, box)
			if err != nil {
				return err
			}
			reg.AddTessel(job, t)
			continue
		}
		if err := job.Elem.Split(job, obj, box, q); err != nil {
			return err
		}
	}
}
